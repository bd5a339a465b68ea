package discord

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const socketSlots = 10

// socketPaths lists the IPC sockets a Discord client may listen on, in the
// order they are tried.
func socketPaths() []string {
	var bases []string
	seen := make(map[string]bool)
	add := func(dir string) {
		if dir == "" || seen[dir] {
			return
		}
		seen[dir] = true
		bases = append(bases, dir)
	}

	add(xdg.RuntimeDir)
	for _, env := range []string{"TMPDIR", "TMP", "TEMP"} {
		add(os.Getenv(env))
	}
	add("/tmp")

	var paths []string
	for _, base := range bases {
		// Plain install, Flatpak and Snap.
		for _, dir := range []string{
			base,
			filepath.Join(base, "app", "com.discordapp.Discord"),
			filepath.Join(base, "snap.discord"),
		} {
			for i := 0; i < socketSlots; i++ {
				paths = append(paths, filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i)))
			}
		}
	}
	return paths
}
