package service

import (
	"context"
	"sara-smart-go/pkg/llm"
	"sync"
)

// fakeCompleter 按调用顺序返回预设回复，回复用尽后重复最后一条。
type fakeCompleter struct {
	mu       sync.Mutex
	replies  []string
	provider string
	err      error
	calls    [][]llm.Message
	opts     []llm.CallOptions
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.Message, opts llm.CallOptions) (llm.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return llm.Result{}, f.err
	}
	reply := ""
	if n := len(f.replies); n > 0 {
		idx := len(f.calls) - 1
		if idx >= n {
			idx = n - 1
		}
		reply = f.replies[idx]
	}
	provider := f.provider
	if provider == "" {
		provider = "fake"
	}
	return llm.Result{Content: reply, Provider: provider, Cost: 0.001}, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeArchiver struct {
	objects map[string][]byte
	err     error
}

func (f *fakeArchiver) Archive(_ context.Context, objectName string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[objectName] = data
	return "https://minio.local/" + objectName, nil
}
