// Command timegarden はTimeGardenのAPIサーバー、ワーカー、運用コマンドを起動する。
package main

import (
	"fmt"
	"os"

	"github.com/z1x2c3v4b5n6/minjiekaifa/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "timegarden: %v\n", err)
		os.Exit(1)
	}
}
