package vm

import (
	"fmt"
	"sync"

	"lumen/internal/plugin"
	"lumen/internal/value"
)

// kvTable is the single DynamoDB table kv_get/kv_put read and write
// through, kept fixed the way lumen's flat key/value model has no
// table-selection syntax of its own.
const kvTable = "lumen_kv"

// kvBridge lazily spawns the lumen-plugin-kv subprocess on first use and
// remembers its connection handle across the lifetime of the VM.
type kvBridge struct {
	once     sync.Once
	client   *plugin.Client
	clientID string
	loadErr  error
}

func (b *kvBridge) ensure() error {
	b.once.Do(func() {
		c, err := plugin.Load("kv", "lumen-plugin-kv")
		if err != nil {
			b.loadErr = fmt.Errorf("kv plugin not available: %w", err)
			return
		}
		id, err := c.Call("connect", nil)
		if err != nil {
			b.loadErr = fmt.Errorf("kv plugin not available: %w", err)
			return
		}
		b.client = c
		b.clientID = id.AsString()
	})
	return b.loadErr
}

// defineKVNatives registers kv_get(key) and kv_put(key, value) against
// vm, per SPEC_FULL.md §3.4: each lazily dials the kv plugin subprocess
// and returns a runtime error, never a panic, if it cannot be reached.
func (vm *VM) defineKVNatives() {
	bridge := &kvBridge{}

	vm.DefineNative("kv_get", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Type != value.String {
			return value.Value{}, fmt.Errorf("kv_get(key) expects one string argument")
		}
		if err := bridge.ensure(); err != nil {
			return value.Value{}, err
		}
		return bridge.client.Call("get", []value.Value{
			value.NewString(bridge.clientID),
			value.NewString(kvTable),
			args[0],
		})
	})

	vm.DefineNative("kv_put", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 || args[0].Type != value.String {
			return value.Value{}, fmt.Errorf("kv_put(key, value) expects a string key")
		}
		if err := bridge.ensure(); err != nil {
			return value.Value{}, err
		}
		return bridge.client.Call("put", []value.Value{
			value.NewString(bridge.clientID),
			value.NewString(kvTable),
			args[0],
			args[1],
		})
	})
}
