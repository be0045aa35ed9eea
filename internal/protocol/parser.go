package protocol

import "strings"

// Command is one parsed request: a command keyword and its typed
// arguments, mirroring the parser's argv[0..argc] with tagged
// string|number elements (spec §4.10).
type Command struct {
	Name string
	Args []Token
}

// Arg returns the text of argument i, or "" if out of range.
func (c *Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i].Text
}

// ArgInt returns argument i parsed as an integer and whether it parsed
// cleanly (the token need not have been lexed as TokenNumber — a quoted
// or bare digit string both parse).
func (c *Command) ArgInt(i int) (int64, bool) {
	if i < 0 || i >= len(c.Args) {
		return 0, false
	}
	v, err := c.Args[i].Int64()
	return v, err == nil
}

// Parse tokenizes and parses one request line into a Command. It returns
// nil for an empty or whitespace-only line, matching the source's
// "empty or ill-formed lines yield null" contract — the executor is
// responsible for replying "Invalid command\n" in that case.
func Parse(line string) *Command {
	line = strings.TrimRight(line, "\r\n")
	tokens := Lex(line)
	if len(tokens) == 0 {
		return nil
	}

	return &Command{
		Name: strings.ToLower(tokens[0].Text),
		Args: tokens[1:],
	}
}
