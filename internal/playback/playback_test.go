package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type play struct {
	guildID   string
	channelID string
	sound     string
}

// chanSink reports each play on a channel so tests can wait for the
// actor without sleeping.
type chanSink struct {
	plays chan play
}

func newChanSink() *chanSink {
	return &chanSink{plays: make(chan play, 128)}
}

func (s *chanSink) Play(guildID, channelID, sound string) error {
	s.plays <- play{guildID, channelID, sound}
	return nil
}

func (s *chanSink) next(t *testing.T) play {
	t.Helper()
	select {
	case p := <-s.plays:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback")
		return play{}
	}
}

func TestEnqueuePlaysInOrder(t *testing.T) {
	sink := newChanSink()
	m := NewManager(sink)
	defer m.Shutdown()

	m.Enqueue("g1", "voice1", "horn", 3)
	for i := 0; i < 3; i++ {
		p := sink.next(t)
		assert.Equal(t, "g1", p.guildID)
		assert.Equal(t, "voice1", p.channelID)
		assert.Equal(t, "horn", p.sound)
	}
}

func TestEveryFifthGreetingIsTheLongOne(t *testing.T) {
	sink := newChanSink()
	m := NewManager(sink)
	defer m.Shutdown()

	m.Enqueue("g1", "voice1", GreetingSound, 6)
	var sounds []string
	for i := 0; i < 6; i++ {
		sounds = append(sounds, sink.next(t).sound)
	}
	assert.Equal(t, []string{
		GreetingSound, GreetingSound, GreetingSound, GreetingSound,
		longGreetingSound, GreetingSound,
	}, sounds)
}

func TestGuildsAreIsolated(t *testing.T) {
	sink := newChanSink()
	m := NewManager(sink)
	defer m.Shutdown()

	m.Enqueue("g1", "voice1", "a", 1)
	m.Enqueue("g2", "voice2", "b", 1)

	got := map[string]string{}
	for i := 0; i < 2; i++ {
		p := sink.next(t)
		got[p.guildID] = p.sound
	}
	assert.Equal(t, map[string]string{"g1": "a", "g2": "b"}, got)
}

// blockingSink holds the actor inside Play until released, keeping
// queued requests pending.
type blockingSink struct {
	chanSink
	release chan struct{}
}

func (s *blockingSink) Play(guildID, channelID, sound string) error {
	s.plays <- play{guildID, channelID, sound}
	<-s.release
	return nil
}

func TestStopDrainsPendingQueue(t *testing.T) {
	sink := &blockingSink{chanSink: *newChanSink(), release: make(chan struct{})}
	m := NewManager(sink)
	defer m.Shutdown()

	m.Enqueue("g1", "voice1", "horn", 5)
	// First play started, four pending.
	sink.next(t)

	m.Stop("g1")
	close(sink.release)

	// Nothing else plays after the drain.
	select {
	case p := <-sink.plays:
		t.Fatalf("unexpected playback after stop: %+v", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestEnqueueAfterShutdownIsIgnored(t *testing.T) {
	sink := newChanSink()
	m := NewManager(sink)
	m.Shutdown()

	m.Enqueue("g1", "voice1", "horn", 1)
	select {
	case <-sink.plays:
		t.Fatal("unexpected playback after shutdown")
	case <-time.After(100 * time.Millisecond):
	}
}
