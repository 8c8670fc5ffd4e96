package monitor

import (
	"strconv"
	"strings"
	"sync"

	"fundarb/internal/application/port"
)

type Dir int

const (
	DirSame Dir = 0
	DirUp   Dir = +1
	DirDown Dir = -1
)

type pxState struct {
	str   string
	num   float64
	has   bool
	dir   Dir
	seen  bool
	parse bool
}

type tokenState struct {
	exchanges map[string]*pxState // exchange -> mark price state
}

// State 每个币种每个交易所的实时标记价
type State struct {
	mu sync.Mutex

	order  []string
	tokens map[string]*tokenState
}

func NewState(coins []string) *State {
	order := make([]string, 0, len(coins))
	tokens := make(map[string]*tokenState, len(coins))
	for _, coin := range coins {
		u := strings.ToUpper(strings.TrimSpace(coin))
		if u == "" {
			continue
		}
		order = append(order, u)
		tokens[u] = &tokenState{
			exchanges: make(map[string]*pxState),
		}
	}
	return &State{order: order, tokens: tokens}
}

func (s *State) Tokens() []string {
	return s.order
}

// Apply 应用一个币种的标记价更新，返回显示是否需要刷新
func (s *State) Apply(t port.Tick) bool {
	ex := strings.ToLower(strings.TrimSpace(t.Exchange))
	coin := strings.ToUpper(strings.TrimSpace(t.BaseToken))
	price := strings.TrimSpace(t.PriceStr)
	if coin == "" || price == "" || ex == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.tokens[coin]
	if st == nil {
		return false
	}

	ps := st.exchanges[ex]
	if ps == nil {
		ps = &pxState{}
		st.exchanges[ex] = ps
	}

	// 价格不变就不重画
	if ps.str == price {
		ps.seen = true
		return false
	}

	ps.str = price
	ps.seen = true

	n, err := strconv.ParseFloat(price, 64)
	if err != nil {
		ps.parse = false
		ps.dir = DirSame
		return true
	}

	ps.parse = true
	if !ps.has {
		ps.has = true
		ps.num = n
		ps.dir = DirSame
		return true
	}

	prev := ps.num
	switch {
	case n > prev:
		ps.dir = DirUp
	case n < prev:
		ps.dir = DirDown
	default:
		ps.dir = DirSame
	}
	ps.num = n
	return true
}

// ExchangePrices 某个币种下各交易所的价格状态副本
func (s *State) ExchangePrices(coin string) map[string]pxState {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if coin == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.tokens[coin]
	if st == nil {
		return nil
	}

	out := make(map[string]pxState, len(st.exchanges))
	for ex, ps := range st.exchanges {
		out[ex] = *ps
	}
	return out
}
