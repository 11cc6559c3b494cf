// Command coreclock derives STM32H7RS core clocks from RCC register dumps and
// monitors the clock reports streamed by the firmware.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
