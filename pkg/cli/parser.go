package cli

import (
	"fmt"
	"strings"
)

// parser reads the command definition into an Engine. Statements attach to
// the most recent 'cmd' (or to the global scope after 'global') and 'text'
// attaches to the most recent 'topic'.
type parser struct {
	lex    *lexer
	tok    token
	engine *Engine
	cmd    *Command
	topic  *Topic
	// line of the 'default' statement, for validation errors.
	defaultLine int
}

func newParser(dsl string, engine *Engine) *parser {
	p := &parser{lex: newLexer(dsl), engine: engine}
	p.next()
	return p
}

func (p *parser) next() {
	p.tok = p.lex.nextToken()
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.tok.line, fmt.Sprintf(format, args...))
}

// expect consumes a token of kind and returns its value.
func (p *parser) expect(kind tokenKind, what string) (string, error) {
	if p.tok.kind == tokError {
		return "", p.errorf("%s", p.tok.value)
	}
	if p.tok.kind != kind {
		return "", p.errorf("expected %s, got %q", what, p.tok.value)
	}
	v := p.tok.value
	p.next()
	return v, nil
}

// word consumes an identifier that is not a keyword, if there is one.
func (p *parser) word() (string, bool) {
	if p.tok.kind != tokIdentifier || isKeyword(p.tok.value) {
		return "", false
	}
	v := p.tok.value
	p.next()
	return v, true
}

func (p *parser) parse() error {
	for p.tok.kind != tokEOF {
		line := p.tok.line
		kw, err := p.expect(tokIdentifier, "keyword")
		if err != nil {
			return err
		}
		stmt, ok := statements[kw]
		if !ok {
			return fmt.Errorf("line %d: unknown keyword %q", line, kw)
		}
		if err := stmt(p); err != nil {
			return err
		}
	}
	return p.validate()
}

var statements map[string]func(*parser) error

func init() {
	statements = map[string]func(*parser) error{
		"global":  (*parser).parseGlobal,
		"default": (*parser).parseDefault,
		"cmd":     (*parser).parseCommand,
		"flag":    (*parser).parseFlag,
		"arg":     (*parser).parseArg,
		"example": (*parser).parseExample,
		"topic":   (*parser).parseTopic,
		"text":    (*parser).parseText,
	}
}

func isKeyword(s string) bool {
	_, ok := statements[s]
	return ok
}

func (p *parser) parseGlobal() error {
	p.cmd = nil
	p.topic = nil
	return nil
}

// parseDefault names the command run when the command line has none.
func (p *parser) parseDefault() error {
	if p.engine.Default != "" {
		return p.errorf("default command already set to %q", p.engine.Default)
	}
	p.defaultLine = p.tok.line
	name, ok := p.word()
	if !ok {
		return p.errorf("expected default command name")
	}
	p.engine.Default = name
	return nil
}

func (p *parser) parseFlag() error {
	name, err := p.expect(tokIdentifier, "flag name")
	if err != nil {
		return err
	}
	typ, err := p.expect(tokIdentifier, "flag type")
	if err != nil {
		return err
	}
	if typ != "bool" && typ != "string" {
		return p.errorf("unsupported flag type %q for --%s", typ, name)
	}
	desc, err := p.expect(tokString, "flag description")
	if err != nil {
		return err
	}
	f := &Flag{Name: name, Type: typ, Desc: desc}
	if short, ok := p.word(); ok {
		f.Short = short
	}

	scope := &p.engine.GlobalFlags
	if p.cmd != nil {
		scope = &p.cmd.Flags
	}
	for _, other := range *scope {
		if other.Name == f.Name {
			return p.errorf("flag --%s defined twice", f.Name)
		}
		if f.Short != "" && other.Short == f.Short {
			return p.errorf("flag -%s used by --%s and --%s", f.Short, other.Name, f.Name)
		}
	}
	*scope = append(*scope, f)
	return nil
}

// parseCommand finds or creates every command along the path, so that
// 'cmd pkg add' may come before or after 'cmd pkg'.
func (p *parser) parseCommand() error {
	var path []string
	for {
		w, ok := p.word()
		if !ok {
			break
		}
		path = append(path, w)
	}
	if len(path) == 0 {
		return p.errorf("expected command name or path")
	}

	var parent *Command
	list := &p.engine.Commands
	for _, name := range path {
		cur := findCommand(*list, name)
		if cur == nil {
			cur = &Command{Name: name, Parent: parent}
			*list = append(*list, cur)
		}
		parent = cur
		list = &cur.Subs
	}

	if p.tok.kind == tokString {
		parent.Desc = p.tok.value
		p.next()
	}
	p.cmd = parent
	p.topic = nil
	return nil
}

func findCommand(list []*Command, name string) *Command {
	for _, c := range list {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (p *parser) parseArg() error {
	if p.cmd == nil {
		return p.errorf("'arg' must follow a 'cmd'")
	}
	name, err := p.expect(tokIdentifier, "arg name")
	if err != nil {
		return err
	}
	typ, err := p.expect(tokIdentifier, "arg type")
	if err != nil {
		return err
	}
	if typ != "string" {
		return p.errorf("unsupported arg type %q for %s", typ, name)
	}
	desc, err := p.expect(tokString, "arg description")
	if err != nil {
		return err
	}
	for _, a := range p.cmd.Args {
		if a.Name == name {
			return p.errorf("arg %s defined twice on %s", name, p.cmd.Path())
		}
	}
	p.cmd.Args = append(p.cmd.Args, &Arg{Name: name, Type: typ, Desc: desc})
	return nil
}

func (p *parser) parseExample() error {
	if p.cmd == nil {
		return p.errorf("'example' must follow a 'cmd'")
	}
	ex, err := p.expect(tokString, "example string")
	if err != nil {
		return err
	}
	p.cmd.Examples = append(p.cmd.Examples, ex)
	return nil
}

func (p *parser) parseTopic() error {
	name, err := p.expect(tokIdentifier, "topic name")
	if err != nil {
		return err
	}
	desc, err := p.expect(tokString, "topic description")
	if err != nil {
		return err
	}
	for _, t := range p.engine.Topics {
		if t.Name == name {
			return p.errorf("topic %s defined twice", name)
		}
	}
	t := &Topic{Name: name, Desc: desc}
	p.engine.Topics = append(p.engine.Topics, t)
	p.topic = t
	p.cmd = nil
	return nil
}

func (p *parser) parseText() error {
	if p.topic == nil {
		return p.errorf("'text' must follow a 'topic'")
	}
	text, err := p.expect(tokString, "text string")
	if err != nil {
		return err
	}
	p.topic.Text = text
	return nil
}

// validate checks the rules that span statements: group commands take no
// arguments, command flags do not shadow global ones and the default
// command is a runnable top level command.
func (p *parser) validate() error {
	globals := make(map[string]bool)
	for _, f := range p.engine.GlobalFlags {
		globals["--"+f.Name] = true
		if f.Short != "" {
			globals["-"+f.Short] = true
		}
	}

	var walk func(cmds []*Command) error
	walk = func(cmds []*Command) error {
		for _, c := range cmds {
			if len(c.Subs) > 0 && len(c.Args) > 0 {
				return fmt.Errorf("command %s has subcommands and cannot take arguments", c.Path())
			}
			for _, f := range c.Flags {
				if globals["--"+f.Name] || (f.Short != "" && globals["-"+f.Short]) {
					return fmt.Errorf("flag --%s of %s shadows a global flag", f.Name, c.Path())
				}
			}
			if err := walk(c.Subs); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(p.engine.Commands); err != nil {
		return err
	}

	if d := p.engine.Default; d != "" {
		c := findCommand(p.engine.Commands, d)
		if c == nil {
			return fmt.Errorf("line %d: default command %q is not defined", p.defaultLine, d)
		}
		if len(c.Subs) > 0 || len(c.Args) > 0 {
			return fmt.Errorf("line %d: default command %q must run without arguments", p.defaultLine, d)
		}
	}
	return nil
}

// Path is the space separated command path, e.g. "pkg add".
func (c *Command) Path() string {
	var parts []string
	for cur := c; cur != nil; cur = cur.Parent {
		parts = append([]string{cur.Name}, parts...)
	}
	return strings.Join(parts, " ")
}
