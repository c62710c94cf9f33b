package main

import "mealquest/cmd/mq/root"

func main() {
	root.Execute()
}
