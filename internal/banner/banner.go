// Package banner renders the startup banner.
package banner

import "fmt"

const art = `
  _                 _
 (_)_ _  ___ _ _ _ | |
 | | ' \(_-<| ' \ _|| |__ ___ _ _ ___
 |_|_||_/__/|_||_\__|_/ -_)  _| -_)
                      \___|_| \___|
`

// Banner returns the banner followed by the version line.
func Banner(version string) string {
	return fmt.Sprintf("%s  insincere %s\n\n", art, version)
}
