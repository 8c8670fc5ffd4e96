package console

import (
	"fmt"
	"time"

	"fundarb/internal/application/port"
)

type Sink struct{}

func NewSink() port.Sink { return &Sink{} }

func (s *Sink) WriteLive(line string) error {
	fmt.Print(line) // no newline
	return nil
}

// 打印快照块后留一个空行占位；不立刻重画 live，等下一次变化刷新
func (s *Sink) WriteSnapshot(ts time.Time, lines []string) error {
	fmt.Print("\n")
	fmt.Printf("===== %s =====\n", ts.Format("2006-01-02 15:04:05"))
	for _, line := range lines {
		fmt.Println(line)
	}
	fmt.Print("\n")
	return nil
}

func (s *Sink) NewLine() error {
	fmt.Print("\n")
	return nil
}
