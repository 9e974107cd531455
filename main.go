package main

import "github.com/Gautam3767/additive_registry_backend/cmd"

// @title Additive Registry API
// @version 1.0
// @description Crowd-sourced registry of consumer products and their additive status, backed by MongoDB.
// @BasePath /api/v1
func main() {
	cmd.Execute()
}
