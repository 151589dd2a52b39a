package main

import "github.com/leafsii/leafsii-cms/cmd/cmsctl/cmd"

func main() {
	cmd.Execute()
}
