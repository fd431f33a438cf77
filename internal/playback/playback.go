// Package playback queues greeting sounds per guild. Each guild gets
// its own actor goroutine owning a private queue, so no queue state is
// ever shared between event handlers.
package playback

import (
	"log/slog"
	"sync"
)

const (
	// GreetingSound is played when someone joins a voice channel.
	GreetingSound = "mundo"
	// longGreetingSound replaces every fifth greeting.
	longGreetingSound = "mundo-say-name-often"

	queueCapacity = 64
	greetingCycle = 5
)

// Sink plays one named sound into a voice channel, blocking until
// playback finishes.
type Sink interface {
	Play(guildID, channelID, sound string) error
}

type request struct {
	channelID string
	sound     string
}

// Manager supervises one playback actor per guild.
type Manager struct {
	sink Sink

	mu     sync.Mutex
	guilds map[string]*guildPlayer
	closed bool
}

// NewManager creates a playback manager.
func NewManager(sink Sink) *Manager {
	return &Manager{sink: sink, guilds: make(map[string]*guildPlayer)}
}

// Enqueue queues a sound count times for a guild's voice channel,
// starting the guild's actor on first use. When the queue is full the
// overflow is dropped rather than blocking the event handler.
func (m *Manager) Enqueue(guildID, channelID, sound string, count int) {
	p := m.player(guildID)
	if p == nil {
		return
	}
	for i := 0; i < count; i++ {
		select {
		case p.requests <- request{channelID: channelID, sound: sound}:
		default:
			slog.Warn("Playback queue full, dropping request", "guild", guildID, "sound", sound)
			return
		}
	}
}

// Stop drains a guild's pending queue. The sound currently playing is
// the sink's concern and finishes on its own.
func (m *Manager) Stop(guildID string) {
	m.mu.Lock()
	p := m.guilds[guildID]
	m.mu.Unlock()
	if p == nil {
		return
	}
	for {
		select {
		case <-p.requests:
		default:
			return
		}
	}
}

// Shutdown stops every actor. The manager accepts nothing afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, p := range m.guilds {
		close(p.quit)
	}
}

func (m *Manager) player(guildID string) *guildPlayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	p, ok := m.guilds[guildID]
	if !ok {
		p = &guildPlayer{
			guildID:  guildID,
			sink:     m.sink,
			requests: make(chan request, queueCapacity),
			quit:     make(chan struct{}),
		}
		m.guilds[guildID] = p
		go p.run()
	}
	return p
}

// guildPlayer is the per-guild actor.
type guildPlayer struct {
	guildID  string
	sink     Sink
	requests chan request
	quit     chan struct{}
}

func (p *guildPlayer) run() {
	played := 0
	for {
		select {
		case <-p.quit:
			return
		case req := <-p.requests:
			played++
			sound := req.sound
			if sound == GreetingSound && played%greetingCycle == 0 {
				sound = longGreetingSound
			}
			if err := p.sink.Play(p.guildID, req.channelID, sound); err != nil {
				slog.Error("Playback failed",
					"guild", p.guildID, "channel", req.channelID, "sound", sound, "error", err)
			}
		}
	}
}
