// Package main provides the loopify control CLI.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/loopify/internal/api/connect"
	"github.com/osa030/loopify/internal/app/notification"
	"github.com/osa030/loopify/internal/domain/loop"
	"github.com/osa030/loopify/internal/domain/media"
)

var (
	app    = kingpin.New("loopctl", "loopify control client")
	server = app.Flag("server", "Server address").Default("http://127.0.0.1:5000").Envar("LOOPIFY_SERVER").String()
	token  = app.Flag("token", "Admin token (or set LOOPIFY_ADMIN_TOKEN env)").Envar("LOOPIFY_ADMIN_TOKEN").String()

	statusCmd = app.Command("status", "Show loop status and watcher phase")

	loopCmd   = app.Command("loop", "Show or change the loop configuration")
	loopMode  = loopCmd.Flag("mode", "Loop mode: off, playlist, song (or 0-2)").String()
	countSet  bool
	loopCount = loopCmd.Flag("count", "Number of plays per song, 0 for infinite").IsSetByUser(&countSet).Int()

	songCmd = app.Command("song", "Show the current track")

	watchCmd = app.Command("watch", "Stream notifications until interrupted")

	commandCmds = map[string]media.Command{}
)

func init() {
	for _, c := range []struct {
		name string
		help string
		cmd  media.Command
	}{
		{"playpause", "Toggle play/pause", media.PlayPause},
		{"next", "Skip to the next track", media.Next},
		{"prev", "Go back to the previous track", media.Prev},
		{"volup", "Raise the volume", media.VolumeUp},
		{"voldown", "Lower the volume", media.VolumeDown},
		{"mute", "Toggle mute", media.Mute},
	} {
		commandCmds[app.Command(c.name, c.help).FullCommand()] = c.cmd
	}
}

func main() {
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == watchCmd.FullCommand() {
		watch()
		return
	}

	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or LOOPIFY_ADMIN_TOKEN env)")
		os.Exit(1)
	}

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	switch command {
	case statusCmd.FullCommand():
		err = status(ctx, client)
	case loopCmd.FullCommand():
		err = setLoop(ctx, client)
	case songCmd.FullCommand():
		err = song(ctx, client)
	default:
		cmd, ok := commandCmds[command]
		if !ok {
			app.FatalUsage("unknown command %s", command)
		}
		if err = client.Execute(ctx, cmd); err == nil {
			fmt.Printf("%s: ok\n", cmd)
		}
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func status(ctx context.Context, client *apiconnect.Client) error {
	s, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Mode:   %s\n", s.Loop.State)
	fmt.Printf("Loops:  %s\n", formatCount(s.Loop))
	fmt.Printf("Phase:  %s\n", s.Phase)
	return nil
}

func setLoop(ctx context.Context, client *apiconnect.Client) error {
	var req apiconnect.SetLoopRequest
	if *loopMode != "" {
		m, err := loop.ParseMode(*loopMode)
		if err != nil {
			return err
		}
		idx := int(m)
		req.StateIndex = &idx
	}
	if countSet {
		req.LoopCount = loopCount
	}

	var l *apiconnect.Loop
	var err error
	if req.StateIndex == nil && req.LoopCount == nil {
		l, err = client.GetLoop(ctx)
	} else {
		l, err = client.SetLoop(ctx, &req)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Mode:   %s\n", l.State)
	fmt.Printf("Loops:  %s\n", formatCount(l))
	return nil
}

func song(ctx context.Context, client *apiconnect.Client) error {
	t, err := client.SongInfo(ctx)
	if err != nil {
		return err
	}
	if t == nil {
		fmt.Println("Nothing playing")
		return nil
	}
	state := "paused"
	if t.IsPlaying {
		state = "playing"
	}
	fmt.Printf("%s - %s [%s] %s / %s\n", t.Title, t.Artist, state,
		formatMs(t.ProgressMs), formatMs(t.DurationMs))
	return nil
}

func watch() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	url := "ws" + strings.TrimPrefix(strings.TrimRight(*server, "/"), "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Println("Watching notifications. Press Ctrl+C to exit.")
	for {
		var n notification.Notification
		if err := wsjson.Read(ctx, conn, &n); err != nil {
			if ctx.Err() == nil {
				fmt.Printf("Stream error: %v\n", err)
			}
			return
		}
		printNotification(&n)
	}
}

func printNotification(n *notification.Notification) {
	fmt.Printf("[%d] %s %s mode=%s loops=%d/%d phase=%s",
		n.SequenceNo, n.Time.Format(time.TimeOnly), n.Type,
		n.Loop.LoopState, n.Loop.LoopsDone, n.Loop.LoopCount, n.Phase)
	if n.Track != nil {
		fmt.Printf(" track=%q", n.Track.Title+" - "+n.Track.Artist)
	}
	if n.Error != "" {
		fmt.Printf(" error=%q", n.Error)
	}
	fmt.Println()
}

func formatCount(l *apiconnect.Loop) string {
	if l.LoopCount == 0 {
		return fmt.Sprintf("%d/infinite", l.LoopsDone)
	}
	return fmt.Sprintf("%d/%d", l.LoopsDone, l.LoopCount)
}

func formatMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
