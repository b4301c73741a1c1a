package main

import (
	"log"

	"github.com/patric-chuzhbe/tinylink/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		log.Fatalln("application init error:", err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		log.Fatalln("application error:", err)
	}
}
