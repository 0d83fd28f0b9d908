package panel

import (
	"fmt"
	"math"
	"strings"
)

const sampleRows = 20

// SampleCSV returns a contrived 20-row series, sin(i/5.4321) to three decimal
// places, with a header line. It stands in for logged flight data.
func SampleCSV() string {
	var b strings.Builder
	b.WriteString("Time, Jumpiness\n")
	for i := 0; i < sampleRows; i++ {
		fmt.Fprintf(&b, "%d,%.3f\n", i, math.Sin(float64(i)/5.4321))
	}
	return b.String()
}
