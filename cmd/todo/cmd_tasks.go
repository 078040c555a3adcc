package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"todolist/cmd/todo/ui"
	"todolist/internal/tasks"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var listPlain bool

// addCmd creates a task without opening the screen
var addCmd = &cobra.Command{
	Use:   "add <title> [description]",
	Short: "Add a task",
	Long: `Adds a task with the given title and optional description.
Empty values are accepted.

Example:
  todo add "Buy milk" "2 liters"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAdd,
}

// listCmd prints every task
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tasks",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	title := args[0]
	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	if err := reportAdd(title, description, a.ctrl.Create(ctx, title, description)); err != nil {
		return err
	}
	if n, err := a.store.Count(ctx); err == nil {
		fmt.Printf("%d task(s) in %s\n", n, a.store.Path())
	}
	return nil
}

// reportAdd prints the outcome of a create. A task that was stored but whose
// reload failed still counts as added.
func reportAdd(title, description string, err error) error {
	row := ui.FormatRow(tasks.Task{Title: title, Description: description})
	switch {
	case err == nil:
		logger.Info("task added", zap.String("title", title))
		fmt.Printf("Added: %s\n", row)
		return nil
	case errors.Is(err, tasks.ErrNotReloaded):
		logger.Warn("task added but list not reloaded", zap.String("title", title), zap.Error(err))
		fmt.Printf("Added: %s\n", row)
		fmt.Fprintf(os.Stderr, "warning: the task list could not be reloaded: %v\n", err)
		return nil
	default:
		return fmt.Errorf("failed to add task %q: %w", title, err)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ctrl.Load(ctx); err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	list := a.ctrl.Tasks()
	logger.Debug("tasks loaded", zap.Int("count", len(list)))

	if listPlain {
		if len(list) == 0 {
			fmt.Println("No tasks yet.")
			return nil
		}
		for _, t := range list {
			fmt.Println(ui.FormatRow(t))
		}
		return nil
	}

	out, err := renderMarkdown(tasksMarkdown(list), a.cfg.UI.Theme)
	if err != nil {
		return fmt.Errorf("failed to render tasks: %w", err)
	}
	fmt.Print(out)
	return nil
}

// tasksMarkdown formats the list as a markdown document.
func tasksMarkdown(list []tasks.Task) string {
	var sb strings.Builder
	sb.WriteString("# Tasks\n\n")
	if len(list) == 0 {
		sb.WriteString("_No tasks yet._\n")
		return sb.String()
	}
	for _, t := range list {
		sb.WriteString(fmt.Sprintf("- #%d **%s**", t.ID, escapeMarkdown(t.Title)))
		if t.Description != "" {
			sb.WriteString(": " + escapeMarkdown(t.Description))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "[", `\[`, "]", `\]`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func renderMarkdown(md, theme string) (string, error) {
	style := "light"
	if ui.ThemeByName(theme).IsDark {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}

// runScreen opens the interactive task screen.
func runScreen(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	styles := ui.NewStyles(ui.ThemeByName(a.cfg.UI.Theme))
	model := ui.NewModel(a.ctrl, styles, a.cfg.UI.TitlePlaceholder, a.cfg.UI.DescriptionPlaceholder)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err = p.Run()
	logger.Debug("task screen closed", zap.String("data_dir", a.dataDir))
	return err
}
