package network

import (
	"fmt"
	"io"
	"sync"
)

// ConsoleReporter prints one human-readable line per event.
type ConsoleReporter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

func (r *ConsoleReporter) Report(ev Event) {
	line := FormatEvent(ev)
	if line == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, line)
}

// FormatEvent renders ev as a console line.
func FormatEvent(ev Event) string {
	switch ev.Kind {
	case EventListening:
		return fmt.Sprintf("🌐 Listening on %s", ev.Addr)
	case EventAddressAdded:
		return fmt.Sprintf("📍 New local address %s", ev.Addr)
	case EventDiscovered:
		return fmt.Sprintf("🔍 Discovered %s at %s", ev.Peer, ev.Addr)
	case EventExpired:
		return fmt.Sprintf("⏳ Expired %s at %s", ev.Peer, ev.Addr)
	case EventDialing:
		return fmt.Sprintf("🔌 Dialing %s at %s", ev.Peer, ev.Addr)
	case EventConnected:
		return fmt.Sprintf("✅ Connected to %s at %s", ev.Peer, ev.Addr)
	case EventDisconnected:
		return fmt.Sprintf("🔴 Disconnected from %s", ev.Peer)
	case EventDialFailed:
		return fmt.Sprintf("❌ Dial to %s at %s failed: %v", ev.Peer, ev.Addr, ev.Err)
	case EventPing:
		if ev.Err != nil {
			return fmt.Sprintf("📡 Ping: %s failed: %v", ev.Peer, ev.Err)
		}
		return fmt.Sprintf("📡 Ping: %s rtt=%s", ev.Peer, ev.RTT)
	default:
		return ""
	}
}
