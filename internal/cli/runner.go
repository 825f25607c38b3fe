package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hiroki-koketsu/todo-service/internal/client"
	"github.com/hiroki-koketsu/todo-service/internal/model"
	"github.com/hiroki-koketsu/todo-service/internal/ui"
)

// Runner executes one subcommand against the todo service.
type Runner struct {
	API   *client.API
	Store *client.Store
	Out   io.Writer
	Err   io.Writer
	Now   func() time.Time
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func (r *Runner) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		r.PrintHelp()
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		r.PrintHelp()
		return 0

	case "ls":
		return r.doList(ctx)

	case "health":
		return r.doHealth(ctx)

	case "add":
		var deadline *time.Time
		if len(a) >= 2 && a[0] == "--due" {
			d, err := model.ParseDeadline(a[1])
			if err != nil {
				r.fail("add: " + err.Error())
				return 2
			}
			deadline, a = d, a[2:]
		}
		if len(a) == 0 {
			r.fail("usage: todo add [--due YYYY-MM-DD] <text...>")
			return 2
		}
		return r.doAdd(ctx, strings.Join(a, " "), deadline)

	case "done":
		if len(a) != 1 {
			r.fail("usage: todo done <index>")
			return 2
		}
		return r.withIndex(ctx, "done", a[0], func(t client.Todo) int {
			return r.report(r.Store.Toggle(ctx, t.ID), "toggled")
		})

	case "edit":
		if len(a) < 2 {
			r.fail("usage: todo edit <index> <text...>")
			return 2
		}
		text := strings.Join(a[1:], " ")
		return r.withIndex(ctx, "edit", a[0], func(t client.Todo) int {
			return r.report(r.Store.Edit(ctx, t.ID, text, t.Deadline), "edited")
		})

	case "due":
		if len(a) != 2 {
			r.fail("usage: todo due <index> <YYYY-MM-DD|->")
			return 2
		}
		var deadline *time.Time
		if a[1] != "-" {
			d, err := model.ParseDeadline(a[1])
			if err != nil {
				r.fail("due: " + err.Error())
				return 2
			}
			deadline = d
		}
		return r.withIndex(ctx, "due", a[0], func(t client.Todo) int {
			return r.report(r.Store.Edit(ctx, t.ID, t.Text, deadline), "deadline set")
		})

	case "rm":
		if len(a) != 1 {
			r.fail("usage: todo rm <index>")
			return 2
		}
		return r.withIndex(ctx, "rm", a[0], func(t client.Todo) int {
			return r.report(r.Store.Delete(ctx, t.ID), "removed")
		})

	case "clear":
		n, err := r.Store.ClearCompleted(ctx)
		return r.report(err, fmt.Sprintf("%d completed todo(s) removed", n))
	}

	r.fail("unknown subcommand: " + cmd)
	fmt.Fprintln(r.Err)
	r.PrintHelp()
	return 2
}

func (r *Runner) PrintHelp() {
	fmt.Fprint(r.Out, `todo - terminal client for the todo service

Usage:
  todo                 Open the interactive list
  todo <subcommand> [args]

Subcommands:
  ls                              List todos, newest first
  add [--due YYYY-MM-DD] <text>   Add a todo (text can be multiple words)
  done <index>                    Toggle completion of the todo at a 1-based index
  edit <index> <text>             Replace the text of a todo
  due <index> <YYYY-MM-DD|->      Set or clear (-) a deadline
  rm <index>                      Delete a todo
  clear                           Delete every completed todo
  health                          Check that the service is up

Examples:
  todo add --due 2026-11-01 "Renew passport"
  todo ls
  todo done 2
  todo due 3 -
`)
}

func (r *Runner) doList(ctx context.Context) int {
	if err := r.Store.Load(ctx); err != nil {
		return r.report(err, "")
	}
	todos := r.Store.Todos()
	stats := r.Store.Stats()
	now := r.now()

	lines := []string{
		ui.Header(stats),
		ui.MutedStyle.Render(ui.ProgressBar(stats.Completed, stats.Total, 28)),
		"",
	}
	if len(todos) == 0 {
		lines = append(lines, ui.MutedStyle.Render("no todos"))
	}
	for i, t := range todos {
		lines = append(lines, fmt.Sprintf("%s %s", ui.MutedStyle.Render(fmt.Sprintf("%2d.", i+1)), ui.Line(t, t.Overdue(now))))
	}
	lines = append(lines, "", ui.MutedStyle.Render("Tip: add with `todo add \"Buy milk\"`"))

	fmt.Fprintln(r.Out, ui.PanelStyle.Render(strings.Join(lines, "\n")))
	return 0
}

func (r *Runner) doAdd(ctx context.Context, text string, deadline *time.Time) int {
	err := r.Store.Add(ctx, text, deadline)
	if errors.Is(err, client.ErrEmptyText) {
		r.fail("add: empty text")
		return 2
	}
	return r.report(err, "added")
}

func (r *Runner) doHealth(ctx context.Context) int {
	health, err := r.API.Health(ctx)
	if err != nil {
		r.fail("health: " + err.Error())
		return 1
	}
	r.ok(health.Status + ": " + health.Message)
	return 0
}

// withIndex loads the list and resolves a 1-based index before running fn.
func (r *Runner) withIndex(ctx context.Context, cmd, arg string, fn func(client.Todo) int) int {
	n, err := strconv.Atoi(arg)
	if err != nil {
		r.fail(cmd + ": not a number: " + arg)
		return 2
	}
	if err := r.Store.Load(ctx); err != nil {
		return r.report(err, "")
	}
	todos := r.Store.Todos()
	if n < 1 || n > len(todos) {
		r.fail(fmt.Sprintf("index out of range: have %d, got %d", len(todos), n))
		fmt.Fprintln(r.Err, ui.MutedStyle.Render("Hint: run `todo ls` to see valid indexes"))
		return 2
	}
	return fn(todos[n-1])
}

// report prints the Store's user-facing message on failure and okMsg
// otherwise.
func (r *Runner) report(err error, okMsg string) int {
	if err != nil {
		var ae *client.ActionError
		if errors.As(err, &ae) {
			r.fail(ae.Message + ": " + ae.Err.Error())
		} else {
			r.fail(err.Error())
		}
		return 1
	}
	if okMsg != "" {
		r.ok(okMsg)
	}
	return 0
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) ok(msg string) {
	fmt.Fprintln(r.Out, ui.SuccessStyle.Render("✔ "+msg))
}

func (r *Runner) fail(msg string) {
	fmt.Fprintln(r.Err, ui.ErrorStyle.Render("✖ "+msg))
}
