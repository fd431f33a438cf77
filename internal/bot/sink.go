package bot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/discordgo"
)

// voiceSink plays pre-encoded DCA sound files into voice channels.
type voiceSink struct {
	session   *discordgo.Session
	soundsDir string
}

func newVoiceSink(session *discordgo.Session, soundsDir string) *voiceSink {
	return &voiceSink{session: session, soundsDir: soundsDir}
}

// Play joins the voice channel, streams the named sound and leaves.
// It blocks until playback finishes.
func (v *voiceSink) Play(guildID, channelID, sound string) error {
	frames, err := loadSound(filepath.Join(v.soundsDir, sound+".dca"))
	if err != nil {
		return fmt.Errorf("failed to load sound %s: %w", sound, err)
	}

	conn, err := v.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}
	defer conn.Disconnect()

	// Give the connection a moment to become ready
	time.Sleep(250 * time.Millisecond)

	if err := conn.Speaking(true); err != nil {
		return fmt.Errorf("failed to start speaking: %w", err)
	}
	defer conn.Speaking(false)

	for _, frame := range frames {
		conn.OpusSend <- frame
	}

	return nil
}

// loadSound reads a DCA file: a sequence of little-endian int16 frame
// lengths each followed by that many bytes of opus data.
func loadSound(path string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var frames [][]byte
	for {
		var frameLen int16
		err := binary.Read(file, binary.LittleEndian, &frameLen)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}

		frame := make([]byte, frameLen)
		if _, err := io.ReadFull(file, frame); err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
}
