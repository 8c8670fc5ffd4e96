package exchange

import (
	"fmt"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

// Registry 已启用适配器的注册表
// 固定枚举：只有 Supported 列出的交易所可以注册，顺序即注册顺序
type Registry struct {
	order    []string
	adapters map[string]port.Adapter
}

var _ port.AdapterResolver = (*Registry)(nil)

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]port.Adapter)}
}

// Register 注册一个适配器，重复注册或未知名称报错
func (r *Registry) Register(adapter port.Adapter) error {
	name := adapter.Name()
	if !Supported(name) {
		return fmt.Errorf("register %s: %w", name, model.ErrUnsupportedExchange)
	}
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("register %s: already registered", name)
	}
	r.adapters[name] = adapter
	r.order = append(r.order, name)
	return nil
}

// Get 按名称解析适配器
func (r *Registry) Get(name string) (port.Adapter, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, model.ErrUnsupportedExchange)
	}
	return adapter, nil
}

// Enabled 按注册顺序返回全部适配器
func (r *Registry) Enabled() []port.Adapter {
	out := make([]port.Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name])
	}
	return out
}
