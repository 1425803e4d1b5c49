//go:build js && wasm

// ABOUTME: Browser build of the drum kit exporter
// ABOUTME: Exposes op1web_* functions over the bridge to a web page through syscall/js
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"syscall/js"

	"github.com/op1kit/op1drum/pkg/bridge"
)

// handles maps the small integers handed to JavaScript onto bridge handles
type handles struct {
	mu      sync.Mutex
	next    int
	samples map[int]bridge.Sample
	banks   map[int]*bridge.Bank
}

var (
	b     = bridge.NewDefault()
	table = &handles{samples: make(map[int]bridge.Sample), banks: make(map[int]*bridge.Bank)}
)

func (h *handles) addSample(s bridge.Sample) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.samples[h.next] = s
	return h.next
}

func (h *handles) addBank(bk *bridge.Bank) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.banks[h.next] = bk
	return h.next
}

func (h *handles) sample(v js.Value) (bridge.Sample, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.samples[v.Int()]
	if !ok {
		return bridge.Sample{}, fmt.Errorf("%w: unknown sample %d", bridge.ErrState, v.Int())
	}
	return s, nil
}

func (h *handles) bank(v js.Value) (*bridge.Bank, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	bk, ok := h.banks[v.Int()]
	if !ok {
		return nil, fmt.Errorf("%w: unknown bank %d", bridge.ErrState, v.Int())
	}
	return bk, nil
}

func (h *handles) drop(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.samples, id)
	delete(h.banks, id)
}

// jsError converts err into a JavaScript Error; export failures carry
// stage and file properties
func jsError(err error) js.Value {
	e := js.Global().Get("Error").New(err.Error())
	var perr *bridge.PipelineError
	if errors.As(err, &perr) {
		e.Set("stage", perr.Stage)
		if perr.Index >= 0 {
			e.Set("file", perr.Name)
		}
	}
	return e
}

func bytesFrom(v js.Value) []byte {
	data := make([]byte, v.Get("length").Int())
	js.CopyBytesToGo(data, v)
	return data
}

func bytesTo(data []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	return arr
}

func float32sTo(data []float32) js.Value {
	arr := js.Global().Get("Float32Array").New(len(data))
	for i, v := range data {
		arr.SetIndex(i, v)
	}
	return arr
}

// export wraps fn so a missing argument or returned error becomes a JS Error
func export(name string, nargs int, fn func(args []js.Value) (interface{}, error)) {
	js.Global().Set(name, js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) < nargs {
			return jsError(fmt.Errorf("%s: expected %d arguments, got %d", name, nargs, len(args)))
		}
		v, err := fn(args)
		if err != nil {
			log.Printf("%s: %v", name, err)
			return jsError(err)
		}
		return v
	}))
}

func main() {
	export("op1web_sample_load_buffer", 1, func(args []js.Value) (interface{}, error) {
		s, err := b.Decode(bytesFrom(args[0]))
		if err != nil {
			return nil, err
		}
		return table.addSample(s), nil
	})

	export("op1web_sample_get_rate", 1, func(args []js.Value) (interface{}, error) {
		s, err := table.sample(args[0])
		if err != nil {
			return nil, err
		}
		return b.SampleRate(s)
	})

	export("op1web_sample_get_data", 1, func(args []js.Value) (interface{}, error) {
		s, err := table.sample(args[0])
		if err != nil {
			return nil, err
		}
		data, err := b.SampleData(s)
		if err != nil {
			return nil, err
		}
		return float32sTo(data), nil
	})

	export("op1web_sample_release", 1, func(args []js.Value) (interface{}, error) {
		s, err := table.sample(args[0])
		if err != nil {
			return nil, err
		}
		table.drop(args[0].Int())
		return nil, b.Release(s)
	})

	export("op1web_drum_init", 0, func(args []js.Value) (interface{}, error) {
		bk, err := b.CreateBank()
		if err != nil {
			return nil, err
		}
		return table.addBank(bk), nil
	})

	export("op1web_drum_add_sample", 2, func(args []js.Value) (interface{}, error) {
		bk, err := table.bank(args[0])
		if err != nil {
			return nil, err
		}
		s, err := table.sample(args[1])
		if err != nil {
			return nil, err
		}
		return nil, b.Insert(bk, s)
	})

	export("op1web_drum_configure", 2, func(args []js.Value) (interface{}, error) {
		bk, err := table.bank(args[0])
		if err != nil {
			return nil, err
		}
		opts, err := kitOptions(args[1])
		if err != nil {
			return nil, err
		}
		return nil, b.Configure(bk, opts)
	})

	export("op1web_drum_write_buffer", 1, func(args []js.Value) (interface{}, error) {
		bk, err := table.bank(args[0])
		if err != nil {
			return nil, err
		}
		out, err := b.Serialize(bk)
		if err != nil {
			return nil, err
		}
		return bytesTo(out), nil
	})

	export("op1web_drum_destroy", 1, func(args []js.Value) (interface{}, error) {
		bk, err := table.bank(args[0])
		if err != nil {
			return nil, err
		}
		table.drop(args[0].Int())
		b.DestroyBank(bk)
		return nil, nil
	})

	// op1web_export(files, options) takes [{name, data: Uint8Array}] in slot
	// order and returns the kit as a Uint8Array
	export("op1web_export", 1, func(args []js.Value) (interface{}, error) {
		list := args[0]
		files := make([]bridge.File, list.Length())
		for i := range files {
			item := list.Index(i)
			files[i] = bridge.File{Name: item.Get("name").String(), Data: bytesFrom(item.Get("data"))}
		}

		var opts bridge.KitOptions
		if len(args) > 1 {
			var err error
			if opts, err = kitOptions(args[1]); err != nil {
				return nil, err
			}
		}

		out, err := b.Export(files, opts)
		if err != nil {
			return nil, err
		}
		return bytesTo(out), nil
	})

	log.Printf("op1web ready")
	select {}
}

// kitOptions reads kit options from a JavaScript object
func kitOptions(v js.Value) (bridge.KitOptions, error) {
	var opts bridge.KitOptions
	if v.IsUndefined() || v.IsNull() {
		return opts, nil
	}
	raw := js.Global().Get("JSON").Call("stringify", v).String()
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return opts, fmt.Errorf("%w: %v", bridge.ErrConfig, err)
	}
	return opts, nil
}
