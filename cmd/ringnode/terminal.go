package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ringkeep/ringnode/pkg/log"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/node"
)

// terminalControl reads operator commands from stdin for as long as the
// node runs: exit, pause, resume, state, states, and set_file <path>
// (spec section 6). It never blocks Start/Stop — cancel triggers the same
// graceful shutdown a SIGTERM would.
type terminalControl struct {
	n      *node.Node
	cancel context.CancelFunc
	file   string
}

func newTerminalControl(n *node.Node, cancel context.CancelFunc) *terminalControl {
	return &terminalControl{n: n, cancel: cancel}
}

func (t *terminalControl) run() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		command, argument, _ := strings.Cut(line, " ")
		if err := t.dispatch(command, argument); err != nil {
			fmt.Println(err)
		}
	}
}

func (t *terminalControl) dispatch(command, argument string) error {
	switch command {
	case "set_file":
		return t.setFile(argument)
	case "exit":
		return t.exit()
	case "pause":
		return t.setOwnState(model.Active, model.StandBy)
	case "resume":
		return t.setOwnState(model.StandBy, model.Active)
	case "state":
		return t.state()
	case "states":
		return t.states()
	default:
		return fmt.Errorf("Invalid input. Try again.")
	}
}

func (t *terminalControl) setFile(argument string) error {
	if argument == "" {
		return fmt.Errorf("No file name provided. Usage: set_file <file_name>")
	}
	t.file = argument
	fmt.Printf("File is set to: %s\n", argument)
	return nil
}

// print writes to the file set by set_file if one is configured, or to
// stdout otherwise.
func (t *terminalControl) print(data string) {
	if t.file == "" {
		fmt.Println(data)
		return
	}
	if err := os.WriteFile(t.file, []byte(data+"\n"), 0o644); err != nil {
		log.Errorf("terminal: writing to "+t.file, err)
	}
}

// exit marks this node ShuttingDown and triggers range recomputation
// before shutting down (spec 4.3: "a node entering ShuttingDown triggers
// update_ranges"). Only this node's own cluster file is rewritten with
// the recomputed ranges; no other node is contacted.
func (t *terminalControl) exit() error {
	view, err := t.n.Cluster.Read()
	if err != nil {
		return err
	}
	view = view.SetState(view.OwnNode.IP, model.ShuttingDown).WithRecomputedRanges()
	if err := t.n.Cluster.Write(view); err != nil {
		return err
	}
	t.cancel()
	return nil
}

func (t *terminalControl) setOwnState(from, to model.NodeState) error {
	view, err := t.n.Cluster.Read()
	if err != nil {
		return err
	}
	if view.OwnNode.State != from {
		return nil
	}
	return t.n.Cluster.Write(view.SetState(view.OwnNode.IP, to))
}

func (t *terminalControl) setOwnStateUnconditional(to model.NodeState) error {
	view, err := t.n.Cluster.Read()
	if err != nil {
		return err
	}
	return t.n.Cluster.Write(view.SetState(view.OwnNode.IP, to))
}

func (t *terminalControl) state() error {
	view, err := t.n.Cluster.Read()
	if err != nil {
		return err
	}
	t.print(string(view.OwnNode.State))
	return nil
}

// states prints the state of every known member, not just this node's
// own.
func (t *terminalControl) states() error {
	view, err := t.n.Cluster.Read()
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, n := range view.AllNodes() {
		fmt.Fprintf(&b, "%s: %s\n", n.IP, n.State)
	}
	t.print(strings.TrimRight(b.String(), "\n"))
	return nil
}
