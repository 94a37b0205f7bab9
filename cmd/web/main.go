package main

import "prolance_backend/internal/app"

func main() {
	app.Run()
}
