// Package policy defines what a sync run is allowed to do. A preset name
// from the CLI maps to a set of action flags consumed by the engine.
package policy

import (
	"fmt"
	"strings"
)

// Action holds the flags that control a sync run. Upload and Download pick
// the direction(s); the delete flags permit removal of unmatched nodes on
// the respective side.
type Action struct {
	Download     bool
	Upload       bool
	DeleteOnDisk bool
	DeleteOnline bool
}

// presets maps each CLI preset name to its action flags.
//
// "optimize" runs no reconciliation at all: the duplicate-cleanup
// optimizers reuse the scanners but are invoked separately.
var presets = map[string]Action{
	"local_backup":        {Download: true},
	"local_backup_clean":  {Download: true, DeleteOnDisk: true},
	"online_backup":       {Upload: true},
	"online_backup_clean": {Upload: true, DeleteOnline: true},
	"two_way":             {Download: true, Upload: true},
	"optimize":            {},
}

// presetOrder fixes the listing order for help text and error messages.
var presetOrder = []string{
	"local_backup",
	"local_backup_clean",
	"online_backup",
	"online_backup_clean",
	"two_way",
	"optimize",
}

// Preset resolves a preset name to its Action. Unknown names return an
// error listing the valid choices.
func Preset(name string) (Action, error) {
	action, ok := presets[name]
	if !ok {
		return Action{}, fmt.Errorf("policy: unknown sync preset %q (choose one of: %s)", name, strings.Join(presetOrder, ", "))
	}

	return action, nil
}

// PresetNames returns the valid preset names in display order.
func PresetNames() []string {
	names := make([]string, len(presetOrder))
	copy(names, presetOrder)

	return names
}
