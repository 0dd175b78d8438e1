// Package plugin is the host side of lumen's external key/value plugin
// protocol: it spawns a named executable and speaks line-delimited JSON
// requests/responses over its stdin/stdout, the same wire shape the
// teacher's DynamoDB plugin bridge uses.
package plugin

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"lumen/internal/value"
)

// Request is one call sent to the plugin process.
type Request struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// Response is the plugin's reply to a Request. Error is non-empty on
// failure; Result is unset in that case.
type Response struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Client is a running plugin subprocess. Call is safe for concurrent
// use; requests are serialized through Lock the way the teacher's
// PluginClient.Call does.
type Client struct {
	Name    string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Scanner
	running bool
	lock    sync.Mutex
}

var (
	loaded   = make(map[string]*Client)
	loadedMu sync.Mutex
)

// Load starts (or returns the already-running) plugin named name,
// resolving executableName the way the teacher's LoadPlugin does: first
// via $PATH, then beside the current executable, then relative to the
// working directory.
func Load(name, executableName string) (*Client, error) {
	loadedMu.Lock()
	defer loadedMu.Unlock()

	if c, ok := loaded[name]; ok {
		return c, nil
	}

	execPath, err := resolveExecutable(executableName)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(execPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("plugin %s: stdin pipe: %w", name, err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("plugin %s: stdout pipe: %w", name, err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("plugin %s: start: %w", name, err)
	}

	c := &Client{
		Name:    name,
		cmd:     cmd,
		stdin:   stdin,
		stdout:  bufio.NewScanner(stdoutPipe),
		running: true,
	}
	loaded[name] = c
	return c, nil
}

func resolveExecutable(executableName string) (string, error) {
	if p, err := exec.LookPath(executableName); err == nil {
		return p, nil
	}
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), executableName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if _, err := os.Stat(executableName); err == nil {
		return filepath.Abs(executableName)
	}
	return "", fmt.Errorf("plugin executable %q not found on PATH or beside lumen", executableName)
}

// Call sends method(args) to the plugin and waits for its response,
// translating JSON back into a lumen Value. A plugin-reported error or
// a broken pipe is returned as an ordinary Go error, not a lumen panic.
func (c *Client) Call(method string, args []value.Value) (value.Value, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.running {
		return value.Value{}, fmt.Errorf("plugin %s is no longer running", c.Name)
	}

	params := make([]interface{}, len(args))
	for i, a := range args {
		params[i] = valueToInterface(a)
	}

	reqBytes, err := json.Marshal(Request{Method: method, Params: params})
	if err != nil {
		return value.Value{}, fmt.Errorf("plugin %s: marshal request: %w", c.Name, err)
	}

	if _, err := c.stdin.Write(append(reqBytes, '\n')); err != nil {
		c.running = false
		return value.Value{}, fmt.Errorf("plugin %s: write request: %w", c.Name, err)
	}

	if !c.stdout.Scan() {
		c.running = false
		if err := c.stdout.Err(); err != nil {
			return value.Value{}, fmt.Errorf("plugin %s: read response: %w", c.Name, err)
		}
		return value.Value{}, fmt.Errorf("plugin %s: unexpected EOF", c.Name)
	}

	var resp Response
	if err := json.Unmarshal(c.stdout.Bytes(), &resp); err != nil {
		return value.Value{}, fmt.Errorf("plugin %s: unmarshal response: %w", c.Name, err)
	}
	if resp.Error != "" {
		return value.Value{}, fmt.Errorf("plugin %s: %s", c.Name, resp.Error)
	}
	return interfaceToValue(resp.Result), nil
}

func valueToInterface(v value.Value) interface{} {
	switch v.Type {
	case value.Nil:
		return nil
	case value.Bool:
		return v.Bool
	case value.Number:
		return v.Number
	case value.String:
		return v.AsString()
	default:
		return v.String()
	}
}

func interfaceToValue(i interface{}) value.Value {
	if i == nil {
		return value.NewNil()
	}
	switch v := i.(type) {
	case bool:
		return value.NewBool(v)
	case float64:
		return value.NewNumber(v)
	case string:
		return value.NewString(v)
	default:
		return value.NewString(fmt.Sprintf("%v", v))
	}
}
