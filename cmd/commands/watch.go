package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/syncboard/syncboard/clients/api"
	"github.com/syncboard/syncboard/clients/cache"
	clientws "github.com/syncboard/syncboard/clients/ws"
	"github.com/syncboard/syncboard/internal/config"
	"github.com/syncboard/syncboard/internal/events"
	wsprotocol "github.com/syncboard/syncboard/internal/gateway/ws"
	"github.com/syncboard/syncboard/internal/identity"
	"github.com/syncboard/syncboard/internal/task"
)

// NewWatchCommand returns the watch subcommand: a terminal follower that
// mirrors the task collection and prints live changes.
func NewWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow live task changes from a syncboard gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Gateway base URL",
				Value: "http://127.0.0.1:17420",
			},
			&cli.StringFlag{
				Name:  "username",
				Usage: "Account username",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "Account password",
			},
			&cli.BoolFlag{
				Name:  "register",
				Usage: "Register a new account instead of logging in",
			},
		},
		Action: runWatch,
	}
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		cfg = config.Default()
	}

	baseURL := strings.TrimSuffix(cmd.String("url"), "/")
	username := cmd.String("username")
	password := cmd.String("password")
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}

	client := api.New(baseURL)
	var auth *api.AuthResult
	if cmd.Bool("register") {
		auth, err = client.Register(ctx, username, username+"@localhost", password)
	} else {
		auth, err = client.Login(ctx, username, password)
	}
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	fmt.Printf("connected as %s\n", auth.User.Username)

	mirror := cache.New(30 * time.Second)

	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/api/ws"
	follower := clientws.NewClient(wsURL, client.Token(), clientws.Options{
		BaseDelay:   cfg.Client.BaseDelay.Duration(),
		MaxAttempts: cfg.Client.MaxAttempts,
		OnEvent: func(f wsprotocol.Frame) {
			applyEvent(mirror, f)
		},
		OnConnected: func() {
			// No event log on the server: reconcile with a full pull.
			list, err := client.ListTasks(ctx)
			if err != nil {
				slog.Warn("resync pull failed", "error", err)
				return
			}
			mirror.ReplaceAll(list)
			fmt.Printf("-- synced %d tasks --\n", mirror.Len())
		},
		OnStateChange: func(s clientws.State) {
			slog.Debug("channel state", "state", s)
		},
	})

	err = follower.Run(ctx)
	if ctx.Err() != nil {
		leaveCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		follower.Leave(leaveCtx)
		follower.Close()
		return nil
	}
	return err
}

// applyEvent reconciles a pushed event frame into the mirror and prints it.
func applyEvent(mirror *cache.TaskCache, f wsprotocol.Frame) {
	switch events.EventType(f.Event) {
	case events.EventTaskCreated, events.EventTaskUpdated, events.EventTaskAssigned:
		var p struct {
			Task *task.Task `json:"task"`
		}
		if err := json.Unmarshal(f.Payload, &p); err != nil || p.Task == nil {
			return
		}
		mirror.ApplyServer(p.Task)
		fmt.Printf("%s %s [%s] %s\n", f.Event, p.Task.ID, p.Task.Status, p.Task.Title)

	case events.EventTaskDeleted:
		var p struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal(f.Payload, &p); err != nil || p.TaskID == "" {
			return
		}
		mirror.RemoveServer(p.TaskID)
		fmt.Printf("%s %s\n", f.Event, p.TaskID)

	case events.EventUserJoined, events.EventUserLeft:
		var p struct {
			User *identity.User `json:"user"`
		}
		if err := json.Unmarshal(f.Payload, &p); err != nil || p.User == nil {
			return
		}
		fmt.Printf("%s %s\n", f.Event, p.User.Username)
	}
}
