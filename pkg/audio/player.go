// Package audio loops an alarm sound while the reminder surface is open.
package audio

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/borgmon/remindkeeper/pkg/logging"
	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process, and its format is fixed at creation
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func otoContext(format Format) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("init audio context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// Player loops one clip until stopped. Start and Stop may be called any
// number of times; at most one loop runs.
type Player struct {
	clip   Clip
	logger *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewPlayer(clip Clip, logger *slog.Logger) *Player {
	return &Player{clip: clip, logger: logging.Or(logger)}
}

// Start begins looping the clip. It is a no-op while already playing.
func (p *Player) Start() error {
	if p == nil {
		return nil
	}
	if p.clip.Format.BitDepth != 16 {
		return fmt.Errorf("unsupported bit depth %d", p.clip.Format.BitDepth)
	}
	ctx, err := otoContext(p.clip.Format)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return nil
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(ctx, p.stop, p.done)
	p.logger.Debug("alarm sound started")
	return nil
}

// Stop ends the loop and waits for the current player to close
func (p *Player) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	p.logger.Debug("alarm sound stopped")
}

// Playing reports whether the loop is running
func (p *Player) Playing() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *Player) loop(ctx *oto.Context, stop, done chan struct{}) {
	defer close(done)
	poll := time.NewTicker(10 * time.Millisecond)
	defer poll.Stop()

	for {
		player := ctx.NewPlayer(bytes.NewReader(p.clip.PCM))
		player.Play()

		for player.IsPlaying() {
			select {
			case <-stop:
				player.Pause()
				p.closePlayer(player)
				return
			case <-poll.C:
			}
		}
		p.closePlayer(player)

		select {
		case <-stop:
			return
		default:
		}
	}
}

func (p *Player) closePlayer(player *oto.Player) {
	if err := player.Close(); err != nil {
		p.logger.Warn("failed to close audio player", "error", err)
	}
}
