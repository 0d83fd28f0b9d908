// Package netboot brings the network up and hands back a listener for the
// panel. The device either hosts its own access point or joins an existing
// network as a station.
package netboot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"
)

type Mode int

const (
	AccessPoint Mode = iota
	Station
)

var (
	ErrUnknownMode = errors.New("unknown network mode")
	ErrBadPassword = errors.New("access point password must be at least 8 characters")
)

const minPasswordLen = 8

func (m Mode) String() string {
	switch m {
	case AccessPoint:
		return "ap"
	case Station:
		return "station"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMode accepts "ap" or "station" (also "lan"), case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ap", "access-point", "accesspoint":
		return AccessPoint, nil
	case "station", "lan", "sta":
		return Station, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

type Config struct {
	Mode     Mode
	SSID     string
	Password string

	// Access point addressing. The device is its own gateway.
	LocalIP string
	Gateway string
	Subnet  string

	Port          int
	RetryInterval time.Duration
}

// Bootstrap brings the network up. The zero hooks use the host's real
// network; tests replace them.
type Bootstrap struct {
	cfg Config

	listen    func(network, addr string) (net.Listener, error)
	addresses func() ([]net.Addr, error)
}

func New(cfg Config) *Bootstrap {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	return &Bootstrap{
		cfg:       cfg,
		listen:    net.Listen,
		addresses: net.InterfaceAddrs,
	}
}

// Up returns a listener once the network is usable. In station mode it
// retries at the configured interval until an address is assigned or ctx
// is done.
func (b *Bootstrap) Up(ctx context.Context) (net.Listener, error) {
	switch b.cfg.Mode {
	case AccessPoint:
		return b.upAccessPoint()
	case Station:
		return b.upStation(ctx)
	default:
		return nil, fmt.Errorf("network up: %w: %s", ErrUnknownMode, b.cfg.Mode)
	}
}

func (b *Bootstrap) upAccessPoint() (net.Listener, error) {
	if len(b.cfg.Password) < minPasswordLen {
		return nil, fmt.Errorf("access point %q: %w", b.cfg.SSID, ErrBadPassword)
	}
	if net.ParseIP(b.cfg.LocalIP) == nil {
		return nil, fmt.Errorf("access point %q: bad local address %q", b.cfg.SSID, b.cfg.LocalIP)
	}

	log.Printf("[NET] Setting up access point %q at %s (gateway %s, mask %s)",
		b.cfg.SSID, b.cfg.LocalIP, b.cfg.Gateway, b.cfg.Subnet)

	l, err := b.listen("tcp", net.JoinHostPort(b.cfg.LocalIP, strconv.Itoa(b.cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("access point listen: %w", err)
	}
	return l, nil
}

func (b *Bootstrap) upStation(ctx context.Context) (net.Listener, error) {
	log.Printf("[NET] Connecting to %q", b.cfg.SSID)

	ticker := time.NewTicker(b.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		ip, err := b.assigned()
		if err != nil {
			log.Printf("[NET] Reading interface addresses: %v", err)
		}
		if ip != "" {
			log.Printf("[NET] Connected at IP address %s", ip)
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("station %q: %w", b.cfg.SSID, ctx.Err())
		case <-ticker.C:
		}
	}

	l, err := b.listen("tcp", ":"+strconv.Itoa(b.cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("station listen: %w", err)
	}
	return l, nil
}

// assigned returns the first non-loopback IPv4 address, or "".
func (b *Bootstrap) assigned() (string, error) {
	addrs, err := b.addresses()
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip != nil && !ip.IsLoopback() && ip.To4() != nil {
			return ip.String(), nil
		}
	}
	return "", nil
}
