package main

import "draftly/internal/app"

func main() {
	app.Execute()
}
