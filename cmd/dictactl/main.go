package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dictalabs/dicta-core/internal/bus"
	"github.com/dictalabs/dicta-core/internal/config"
	"github.com/dictalabs/dicta-core/internal/gateway"
	"github.com/dictalabs/dicta-core/internal/hotkey"
	"github.com/dictalabs/dicta-core/internal/protocol"
	"github.com/dictalabs/dicta-core/internal/settings"
)

var version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "get":
		err = runGet(os.Args[2:])
	case "set":
		err = runSet(os.Args[2:])
	case "reset":
		err = runReset(os.Args[2:])
	case "history":
		err = runHistory(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  dictactl get                    print all hotkey bindings
  dictactl set <action> <chord>   bind an action to a chord, e.g. "Ctrl+Shift+D"
  dictactl reset                  restore every binding to its default
  dictactl history                list recent settings revisions
  dictactl version                print version`)
}

type conn struct {
	bus *bus.Client
	gw  *gateway.Bus
}

// dial connects to the bus the way a settings surface would. The CLI acts as
// its own surface so revision history attributes its writes.
func dial(servers string, timeout time.Duration) (*conn, error) {
	cfg := config.Default().Bus
	cfg.Embedded = false
	if servers != "" {
		cfg.Servers = strings.Split(servers, ",")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	busClient, err := bus.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to bus: %w", err)
	}
	return &conn{
		bus: busClient,
		gw:  gateway.NewBus(busClient, "dictactl", timeout, logger),
	}, nil
}

func (c *conn) close() { c.bus.Close() }

func runGet(args []string) error {
	fs := commonFlags("get")
	servers := fs.String("servers", "", "comma-separated NATS server URLs")
	timeout := fs.Duration("timeout", 2*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := dial(*servers, *timeout)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	blob, present, err := c.gw.Read(ctx)
	if err != nil {
		return err
	}

	bindings := hotkey.NewBindingSet()
	if present {
		bindings = hotkey.Load(blob.Hotkeys)
	}
	for _, action := range hotkey.Actions() {
		fmt.Printf("%-20s %s\n", action, bindings.Get(action))
	}
	if !present {
		fmt.Fprintln(os.Stderr, "(no settings stored yet, showing defaults)")
	}
	return nil
}

func runSet(args []string) error {
	fs := commonFlags("set")
	servers := fs.String("servers", "", "comma-separated NATS server URLs")
	timeout := fs.Duration("timeout", 2*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return fmt.Errorf("set requires <action> and <chord>")
	}

	action := hotkey.Action(rest[0])
	if !hotkey.Known(action) {
		return fmt.Errorf("unknown action %q (known: %s)", rest[0], strings.Join(actionNames(), ", "))
	}
	chord, err := hotkey.ParseChord(rest[1])
	if err != nil {
		return fmt.Errorf("invalid chord %q: %w", rest[1], err)
	}

	c, err := dial(*servers, *timeout)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	blob, present, err := c.gw.Read(ctx)
	if err != nil {
		return err
	}
	if !present {
		blob = settings.Default()
	}

	bindings := hotkey.Load(blob.Hotkeys)
	bindings.Commit(action, chord)
	blob.Hotkeys = bindings.Snapshot()

	if err := c.gw.Write(ctx, blob); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", action, chord)
	return nil
}

func runReset(args []string) error {
	fs := commonFlags("reset")
	servers := fs.String("servers", "", "comma-separated NATS server URLs")
	timeout := fs.Duration("timeout", 2*time.Second, "request timeout")
	yes := fs.Bool("yes", false, "skip confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*yes && !confirm("Restore every hotkey to its default?") {
		fmt.Println("aborted")
		return nil
	}

	c, err := dial(*servers, *timeout)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	blob, present, err := c.gw.Read(ctx)
	if err != nil {
		return err
	}
	if !present {
		blob = settings.Default()
	}
	blob.Hotkeys = hotkey.NewBindingSet().Snapshot()

	if err := c.gw.Write(ctx, blob); err != nil {
		return err
	}
	fmt.Println("bindings reset to defaults")
	return nil
}

func runHistory(args []string) error {
	fs := commonFlags("history")
	servers := fs.String("servers", "", "comma-separated NATS server URLs")
	timeout := fs.Duration("timeout", 2*time.Second, "request timeout")
	limit := fs.Int("limit", 20, "maximum revisions to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := dial(*servers, *timeout)
	if err != nil {
		return err
	}
	defer c.close()

	payload, err := json.Marshal(protocol.HistoryRequest{Limit: *limit})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	msg, err := c.bus.Request(ctx, protocol.SubjectSettingsHistory, payload)
	if err != nil {
		return fmt.Errorf("history request: %w", err)
	}

	var reply protocol.HistoryReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return fmt.Errorf("decode history reply: %w", err)
	}
	if len(reply.Revisions) == 0 {
		fmt.Println("no revisions recorded")
		return nil
	}
	for _, rev := range reply.Revisions {
		fmt.Printf("%s  %-16s %s\n", rev.CreatedAt.Local().Format(time.RFC3339), rev.Surface, rev.RevisionID)
	}
	return nil
}

func commonFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func actionNames() []string {
	actions := hotkey.Actions()
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}
