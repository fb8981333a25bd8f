package cli

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed cli.def
var DefaultDSL string

// Mutable
type Engine struct {
	GlobalFlags []*Flag
	Commands    []*Command
	Topics      []*Topic
	Handlers    map[string]Handler
	Theme       *Theme
	// Default is the command run when no command is given.
	Default string
	Out     io.Writer
}

func NewEngine(dsl string) (*Engine, error) {
	e := &Engine{
		Handlers: make(map[string]Handler),
		Theme:    DefaultTheme(),
		Out:      os.Stdout,
	}
	if err := e.parseDSL(dsl); err != nil {
		return nil, err
	}
	e.Commands = append(e.Commands, &Command{
		Name: "help",
		Desc: "Show help information",
	})
	return e, nil
}

// MakeEngine parses the embedded command definition.
func MakeEngine() (*Engine, error) {
	return NewEngine(DefaultDSL)
}

func (e *Engine) Register(cmdPath string, h Handler) {
	e.Handlers[cmdPath] = h
}

func (e *Engine) parseDSL(dsl string) error {
	p := newParser(dsl, e)
	return p.parse()
}

type ParseResult struct {
	Invocation *Invocation
	Help       bool
	HelpArgs   []string
	Error      error
}

func (e *Engine) Run(ctx context.Context, args []string) (*ExecutionResult, error) {
	res := e.Parse(args)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.Help {
		e.PrintHelp(res.HelpArgs...)
		return &ExecutionResult{ExitCode: 0}, nil
	}
	return e.Execute(ctx, res.Invocation)
}

func (e *Engine) Parse(args []string) *ParseResult {
	res := &ParseResult{
		Invocation: &Invocation{
			Args:   make(map[string]string),
			Flags:  make(map[string]any),
			Global: make(map[string]any),
		},
	}
	var remaining []string
	// Global flags and help may appear anywhere.
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--help" || arg == "-h" {
			res.Help = true
			continue
		}
		f, value, inline := lookupFlag(e.GlobalFlags, arg)
		if f == nil {
			remaining = append(remaining, arg)
			continue
		}
		switch {
		case f.Type == "bool":
			res.Invocation.Global[f.Name] = true
		case inline:
			res.Invocation.Global[f.Name] = value
		case i+1 < len(args):
			res.Invocation.Global[f.Name] = args[i+1]
			i++
		default:
			res.Error = fmt.Errorf("flag --%s requires a value", f.Name)
			return res
		}
	}

	if res.Help {
		res.HelpArgs = remaining
		return res
	}

	if len(remaining) == 0 || strings.HasPrefix(remaining[0], "-") {
		if e.Default == "" {
			if len(remaining) == 0 {
				res.Help = true
			} else {
				res.Error = fmt.Errorf("unknown flag: %s", remaining[0])
			}
			return res
		}
		remaining = append([]string{e.Default}, remaining...)
	}

	e.resolve(res, nil, e.Commands, remaining)
	return res
}

func (e *Engine) Execute(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
	path := getCmdPath(inv.Command)
	if h, ok := e.Handlers[path]; ok {
		return h.Execute(ctx, inv)
	}
	return nil, fmt.Errorf("no handler registered for command: %s", path)
}

func matchCommand(cmds []*Command, word string) (*Command, error) {
	var matches []*Command
	for _, c := range cmds {
		if c.Name == word {
			return c, nil
		}
		if strings.HasPrefix(c.Name, word) {
			matches = append(matches, c)
		}
	}
	if len(matches) > 1 {
		var names []string
		for _, m := range matches {
			names = append(names, getCmdPath(m))
		}
		return nil, fmt.Errorf("ambiguous command: %s (candidates: %s)", word, strings.Join(names, ", "))
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	return nil, nil
}

// resolve walks the command tree. A top level word that matches no command
// may name a subcommand with its parent omitted.
func (e *Engine) resolve(res *ParseResult, parent *Command, cmds []*Command, args []string) {
	word := args[0]
	cmd, err := matchCommand(cmds, word)
	if err != nil {
		res.Error = err
		return
	}
	if cmd == nil && parent == nil {
		var subs []*Command
		for _, c := range cmds {
			subs = append(subs, c.Subs...)
		}
		if cmd, err = matchCommand(subs, word); err != nil {
			res.Error = err
			return
		}
	}
	if cmd == nil {
		if parent != nil {
			res.Error = fmt.Errorf("unknown command: %s %s", strings.ReplaceAll(getCmdPath(parent), "/", " "), word)
		} else {
			res.Error = fmt.Errorf("unknown command: %s", word)
		}
		return
	}

	if cmd.Name == "help" && cmd.Parent == nil {
		res.Help = true
		res.HelpArgs = args[1:]
		return
	}

	rest := args[1:]
	if len(cmd.Subs) > 0 {
		if len(rest) == 0 || strings.HasPrefix(rest[0], "-") {
			res.Help = true
			res.HelpArgs = strings.Split(getCmdPath(cmd), "/")
			return
		}
		e.resolve(res, cmd, cmd.Subs, rest)
		return
	}

	res.Invocation.Command = cmd
	if err := e.parseParams(res.Invocation, cmd, rest); err != nil {
		res.Error = err
	}
}

func (e *Engine) parseParams(inv *Invocation, cmd *Command, args []string) error {
	argIdx := 0
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") && len(arg) > 1 {
			f, value, inline := lookupFlag(cmd.Flags, arg)
			if f == nil {
				return fmt.Errorf("unknown flag %s for command %s", arg, cmd.Name)
			}
			switch {
			case f.Type == "bool":
				inv.Flags[f.Name] = true
			case inline:
				inv.Flags[f.Name] = value
			case i+1 < len(args):
				inv.Flags[f.Name] = args[i+1]
				i++
			default:
				return fmt.Errorf("flag --%s requires a value", f.Name)
			}
			continue
		}
		if argIdx >= len(cmd.Args) {
			return fmt.Errorf("unexpected argument: %s", arg)
		}
		inv.Args[cmd.Args[argIdx].Name] = arg
		argIdx++
	}

	// Check for missing required arguments
	if argIdx < len(cmd.Args) {
		return fmt.Errorf("argument %s is missing", cmd.Args[argIdx].Name)
	}
	return nil
}

// lookupFlag matches --name, --name=value and -s against flags.
func lookupFlag(flags []*Flag, arg string) (*Flag, string, bool) {
	name, value, inline := arg, "", false
	if strings.HasPrefix(arg, "--") {
		name, value, inline = strings.Cut(arg, "=")
	}
	for _, f := range flags {
		if name == "--"+f.Name || (f.Short != "" && name == "-"+f.Short) {
			return f, value, inline
		}
	}
	return nil, "", false
}

func (e *Engine) PrintHelp(args ...string) {
	t := e.Theme
	w := e.Out
	if len(args) > 0 {
		subject := args[0]
		for _, topic := range e.Topics {
			if topic.Name == subject || strings.HasPrefix(topic.Name, subject) {
				e.PrintTopicHelp(topic)
				return
			}
		}
		// Find command in hierarchy
		curr := e.Commands
		var found *Command
		for _, arg := range args {
			match, _ := matchCommand(curr, arg)
			if match == nil {
				break
			}
			found = match
			curr = match.Subs
		}
		if found != nil {
			e.PrintCommandHelp(found)
			return
		}
	}
	fmt.Fprintf(w, "%s\n", t.Styled(t.Cyan.Bold(true), "isoforge - archiso image builder"))
	fmt.Fprintf(w, "\n%s\n", t.Styled(t.Bold, "Usage:"))
	fmt.Fprintf(w, "  isoforge %s\n", t.Styled(t.Yellow, "[flags] [command]"))
	if e.Default != "" {
		fmt.Fprintf(w, "  %s\n", t.Styled(t.Dim, "Without a command, runs '"+e.Default+"'."))
	}
	fmt.Fprintf(w, "\n%s\n", t.Styled(t.Bold, "Global Flags:"))
	fmt.Fprintf(w, "  %-24s %s\n", t.Styled(t.Cyan, "--help, -h"), t.Styled(t.Dim, "Show help [command | topic]"))
	for _, f := range e.GlobalFlags {
		name := "--" + f.Name
		if f.Short != "" {
			name += ", -" + f.Short
		}
		fmt.Fprintf(w, "  %-24s %s\n", t.Styled(t.Cyan, name), t.Styled(t.Dim, f.Desc))
	}
	categories := []struct {
		name string
		icon string
		cmds []string
	}{
		{"BUILD", t.IconBuild, []string{"build", "plan", "log"}},
		{"CATALOG", t.IconPkg, []string{"pkg", "config"}},
		{"VOLUMES", t.IconDisk, []string{"cache", "work", "volumes"}},
	}
	shown := make(map[string]bool)
	fmt.Fprintln(w)
	for _, cat := range categories {
		var cmds []*Command
		for _, name := range cat.cmds {
			for _, c := range e.Commands {
				if c.Name == name {
					cmds = append(cmds, c)
					shown[c.Name] = true
				}
			}
		}
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", cat.icon, t.Styled(t.Bold, cat.name))
		for i, c := range cmds {
			e.printCommandTree(c, "", i == len(cmds)-1)
		}
		fmt.Fprintln(w)
	}
	// Show remaining commands under MISC
	var misc []*Command
	for _, c := range e.Commands {
		if !shown[c.Name] && c.Name != "help" {
			misc = append(misc, c)
		}
	}
	if len(misc) > 0 {
		fmt.Fprintf(w, "%s %s\n", t.Bullet, t.Styled(t.Bold, "MISC"))
		for i, c := range misc {
			e.printCommandTree(c, "", i == len(misc)-1)
		}
		fmt.Fprintln(w)
	}
	if len(e.Topics) > 0 {
		fmt.Fprintf(w, "%s %s\n", t.IconHelp, t.Styled(t.Bold, "Topics:"))
		for _, topic := range e.Topics {
			fmt.Fprintf(w, "  %s %s %s\n", t.Styled(t.Cyan, topic.Name), e.getPadding(topic.Name, 20), t.Styled(t.Dim, topic.Desc))
		}
	}
	fmt.Fprintf(w, "\nType '%s' for more details.\n", t.Styled(t.Yellow, "isoforge help <command>"))
}

func (e *Engine) getPadding(name string, target int) string {
	t := e.Theme
	dots := target - len(name)
	if dots < 2 {
		dots = 2
	}
	return t.Styled(t.Dim, strings.Repeat(".", dots))
}

func (e *Engine) printCommandTree(c *Command, indent string, isLast bool) {
	t := e.Theme
	prefix := t.BoxTree
	if isLast {
		prefix = t.BoxLast
	}
	namePart := indent + prefix + " " + t.Styled(t.Cyan, c.Name)
	// Box drawing runes are one column wide each.
	visualLen := len([]rune(indent)) + 4 + len(c.Name)
	padding := e.getPadding(strings.Repeat(" ", visualLen), 30)
	fmt.Fprintf(e.Out, "%s %s %s\n", namePart, padding, t.Styled(t.Dim, c.Desc))
	newIndent := indent
	if isLast {
		newIndent += "    "
	} else {
		newIndent += t.BoxItem + " "
	}
	for i, s := range c.Subs {
		e.printCommandTree(s, newIndent, i == len(c.Subs)-1)
	}
}

func (e *Engine) PrintCommandHelp(c *Command) {
	t := e.Theme
	w := e.Out
	fmt.Fprintf(w, "\n%s %s\n", t.Styled(t.Bold, "Command:"), t.Styled(t.Cyan, strings.ReplaceAll(getCmdPath(c), "/", " ")))
	fmt.Fprintf(w, "%s %s\n", t.Styled(t.Bold, "Description:"), t.Styled(t.Dim, c.Desc))
	fmt.Fprintln(w)
	if len(c.Subs) > 0 {
		fmt.Fprintf(w, "%s\n", t.Styled(t.Bold, "Subcommands:"))
		for i, s := range c.Subs {
			prefix := t.BoxTree
			if i == len(c.Subs)-1 {
				prefix = t.BoxLast
			}
			fmt.Fprintf(w, "  %s %-12s %s\n", prefix, t.Styled(t.Cyan, s.Name), t.Styled(t.Dim, s.Desc))
		}
		fmt.Fprintln(w)
	}
	if len(c.Args) > 0 {
		fmt.Fprintf(w, "%s\n", t.Styled(t.Bold, "Arguments:"))
		for _, a := range c.Args {
			fmt.Fprintf(w, "  %-15s %s\n", t.Styled(t.Yellow, "<"+a.Name+">"), t.Styled(t.Dim, a.Desc))
		}
		fmt.Fprintln(w)
	}
	if len(c.Flags) > 0 {
		fmt.Fprintf(w, "%s\n", t.Styled(t.Bold, "Flags:"))
		for _, f := range c.Flags {
			name := "--" + f.Name
			if f.Short != "" {
				name += ", -" + f.Short
			}
			fmt.Fprintf(w, "  %-15s %s\n", t.Styled(t.Cyan, name), t.Styled(t.Dim, f.Desc))
		}
		fmt.Fprintln(w)
	}
	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "%s\n", t.Styled(t.Bold, "Examples:"))
		for _, ex := range c.Examples {
			fmt.Fprintf(w, "  %s %s\n", t.Styled(t.Green, "$"), ex)
		}
		fmt.Fprintln(w)
	}
}

func (e *Engine) PrintTopicHelp(topic *Topic) {
	t := e.Theme
	fmt.Fprintf(e.Out, "\n%s %s\n", t.Styled(t.Bold, "Topic:"), t.Styled(t.Cyan, topic.Name))
	fmt.Fprintf(e.Out, "%s %s\n", t.Styled(t.Bold, "Description:"), t.Styled(t.Dim, topic.Desc))
	fmt.Fprintln(e.Out)
	fmt.Fprintf(e.Out, "%s\n\n", topic.Text)
}

func getCmdPath(c *Command) string {
	if c.Parent == nil {
		return c.Name
	}
	return getCmdPath(c.Parent) + "/" + c.Name
}
