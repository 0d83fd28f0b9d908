// Package page builds the HTML documents served by the control panel.
//
// Titles and labels are substituted literally. Nothing is escaped, so every
// value passed in must come from trusted code, never from a request.
package page

import (
	"bytes"
	"text/template"
)

// RootTitle is the title of the control panel page.
const RootTitle = "ESP32 Web Server Test - Airheads"

// Button is a form with a single submit button.
type Button struct {
	Action string
	Label  string
}

// Input is a form with one text field, submitted as ?value=...
type Input struct {
	Action string
	Label  string
}

// Panel is the set of named substitutions for the root page body.
type Panel struct {
	Heading string
	Buttons []Button
	Manual  []Input
	Gains   []Input
	Reset   Button
}

// DefaultPanel lists the controls offered on the root page.
var DefaultPanel = Panel{
	Heading: "Main Page for ME507 Glider Project",
	Buttons: []Button{
		{Action: "/activate", Label: "Activate Flight Control"},
		{Action: "/deactivate", Label: "Deactivate Flight Control"},
		{Action: "/calibrate", Label: "Calibrate/Zero"},
	},
	Manual: []Input{
		{Action: "/set_rudder", Label: "Set Rudder (-90, 90)"},
		{Action: "/set_elevator", Label: "Set Elevator (-90, 90)"},
	},
	Gains: []Input{
		{Action: "/set_rudder_gain", Label: "Set Rudder Gain"},
		{Action: "/set_elevator_gain", Label: "Set Elevator Gain"},
	},
	Reset: Button{Action: "/reset_gains", Label: "Reset Default Gain"},
}

const headerText = `
<!DOCTYPE html>
<html lang="en">
    <head>
        <meta charset="utf-8">
        <meta name="viewport" content="initial-scale=1, width=device-width">
        <title>{{.Title}}</title>
        <style>
            html { font-family: Helvetica; display: inline-block; margin: 0px auto; text-align:center;}
            body { margin-top: 50px;}
            h1 { color: #4444AA; margin:50px auto 30px;}
            p { font-size: 24px; color: #222222; margin-bottom:10px;}
            input { width:250px;height:100px;font-size:20px;}
        </style>
    </head>
`

const bodyText = `    <body>
        <main>
            <div id="webpage">
                <h1>{{.Heading}}</h1>
                <h2>Control Panel</h2>
                <table>
                    <tr>
{{- range .Buttons}}
                        <form action="{{.Action}}">
                            <input type="submit" value="{{.Label}}">
                        </form>
{{- end}}
                    </tr>
                </table>
                <h2>Manual Control</h2>
{{- range .Manual}}
{{template "input" .}}
{{- end}}
{{- range .Gains}}
{{template "input" .}}
{{- end}}
                <form action="{{.Reset.Action}}">
                    <input type="submit" value="{{.Reset.Label}}" style="width:250px;height:50px;font-size:20px;">
                </form>
            </div>
        </main>
    </body>
</html>
`

const inputText = `                <form action="{{.Action}}">
                    <input type="text" name="value" style="width:150px;height:50px;font-size:20px;">
                    <input type="submit" value="{{.Label}}" style="width:250px;height:50px;font-size:20px;">
                </form>
                <br>`

const redirectText = "<!DOCTYPE html> <html> <head>\n" +
	"<meta http-equiv=\"refresh\" content=\"{{.Delay}}; url='{{.Target}}'\" />\n" +
	"</head> <body> <p> <a href='{{.Target}}'>Back to main page</a></p>" +
	"</body> </html>"

// Renderer holds the parsed page templates. It is safe for concurrent use.
type Renderer struct {
	tmpl  *template.Template
	panel Panel
}

// New parses the page templates for the given panel layout.
func New(p Panel) *Renderer {
	t := template.New("pages")
	template.Must(t.New("header").Parse(headerText))
	template.Must(t.New("body").Parse(bodyText))
	template.Must(t.New("input").Parse(inputText))
	template.Must(t.New("redirect").Parse(redirectText))
	return &Renderer{tmpl: t, panel: p}
}

// Header returns the common prologue with title substituted unescaped.
func (r *Renderer) Header(title string) []byte {
	var buf bytes.Buffer
	r.exec(&buf, "header", struct{ Title string }{title})
	return buf.Bytes()
}

// Root returns the control panel document.
func (r *Renderer) Root() []byte {
	var buf bytes.Buffer
	r.exec(&buf, "header", struct{ Title string }{RootTitle})
	r.exec(&buf, "body", r.panel)
	return buf.Bytes()
}

// Redirect returns a document that sends the browser back to / after one second.
func (r *Renderer) Redirect() []byte {
	var buf bytes.Buffer
	r.exec(&buf, "redirect", struct {
		Delay  int
		Target string
	}{1, "/"})
	return buf.Bytes()
}

// exec panics on failure; templates and data are fixed at compile time.
func (r *Renderer) exec(buf *bytes.Buffer, name string, data any) {
	if err := r.tmpl.ExecuteTemplate(buf, name, data); err != nil {
		panic("page: render " + name + ": " + err.Error())
	}
}
