package cmd

import (
	"fmt"
	"os"
	"sync"
	"time"

	"cortexq/cli/internal/terminal"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// startSpinner shows an animated status line until the returned function is called.
// The line is removed when stopped. When stdout is not a terminal nothing is drawn, so
// piped output stays clean. The stop function is safe to call more than once.
func startSpinner(text string) func() {
	if !terminal.IsInteractive(os.Stdout) {
		return func() {}
	}

	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return func() {}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			area.Update(fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text))
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			_ = area.Stop()
			cursor.Show()
		})
	}
}
