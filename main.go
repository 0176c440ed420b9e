/*
Copyright © 2026 Mapforge Labs <oss@mapforge.dev>
*/
package main

import "github.com/mapforge/stacmeta/cmd"

func main() {
	cmd.Execute()
}
