package execution

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cast"
)

// PackageCommands are the command prefixes of one package manager.
type PackageCommands struct {
	Install      string `json:"install"`
	InstallDev   string `json:"installDev"`
	Remove       string `json:"remove"`
	Update       string `json:"update"`
	Execute      string `json:"execute"`
	GlobalOption string `json:"globalOption"`
}

// ToMap exposes the commands to conditions and templates, e.g.
// {$PACKAGE_COMMANDS.install}.
func (c PackageCommands) ToMap() map[string]any {
	return map[string]any{
		"install":      c.Install,
		"installDev":   c.InstallDev,
		"remove":       c.Remove,
		"update":       c.Update,
		"execute":      c.Execute,
		"globalOption": c.GlobalOption,
	}
}

// PackageManagers lists the supported package managers in detection order.
var PackageManagers = []string{"pnpm", "npm", "yarn", "bun"}

var packageCommands = map[string]PackageCommands{
	"npm": {
		Install:      "npm install -P",
		InstallDev:   "npm install -D",
		Remove:       "npm uninstall",
		Update:       "npm update",
		Execute:      "npx --yes",
		GlobalOption: "-g",
	},
	"yarn": {
		Install:      "yarn add",
		InstallDev:   "yarn add -D",
		Remove:       "yarn remove",
		Update:       "yarn upgrade",
		Execute:      "yarn dlx --yes",
		GlobalOption: "global",
	},
	"pnpm": {
		Install:      "pnpm add",
		InstallDev:   "pnpm add -D",
		Remove:       "pnpm remove",
		Update:       "pnpm update",
		Execute:      "pnpm dlx --yes",
		GlobalOption: "-g",
	},
	"bun": {
		Install:      "bun add",
		InstallDev:   "bun add -D",
		Remove:       "bun remove",
		Update:       "bun update",
		Execute:      "bunx --yes",
		GlobalOption: "-g",
	},
}

// CommandsFor returns the commands of pm.
func CommandsFor(pm string) (PackageCommands, bool) {
	c, ok := packageCommands[pm]
	return c, ok
}

// lockfiles maps lockfile names to their package manager, checked in order.
var lockfiles = []struct{ name, pm string }{
	{"pnpm-lock.yaml", "pnpm"},
	{"yarn.lock", "yarn"},
	{"bun.lock", "bun"},
	{"bun.lockb", "bun"},
	{"package-lock.json", "npm"},
}

// DetectPackageManager picks the package manager for a run: requested when
// it is supported, else the one named by userAgent (npm_config_user_agent,
// set when codx is launched through a package manager), else the one whose
// lockfile is in projectDir, else npm.
func DetectPackageManager(requested, userAgent, projectDir string) string {
	if slices.Contains(PackageManagers, requested) {
		return requested
	}

	if fields := strings.Fields(userAgent); len(fields) > 0 {
		name, _, _ := strings.Cut(fields[0], "/")
		if slices.Contains(PackageManagers, name) {
			return name
		}
	}

	if projectDir != "" {
		for _, lf := range lockfiles {
			if _, err := os.Stat(filepath.Join(projectDir, lf.name)); err == nil {
				return lf.pm
			}
		}
	}

	return "npm"
}

// UsePackageManager detects the package manager and publishes it as
// $PACKAGE_MANAGER and $PACKAGE_COMMANDS.
func (c *Context) UsePackageManager(requested string) string {
	pm := DetectPackageManager(requested, os.Getenv("npm_config_user_agent"), c.ProjectDirectory.Get())
	commands := packageCommands[pm]

	c.setInternalValue(VarPackageManager, pm)
	c.setInternalValue(VarPackageCommands, commands.ToMap())
	c.logger.Debug("package manager selected", "package_manager", pm, "requested", requested)
	return pm
}

// PackageCommands returns the commands published as $PACKAGE_COMMANDS.
func (c *Context) PackageCommands() (PackageCommands, bool) {
	m, ok := c.Store.Get(VarPackageCommands).(map[string]any)
	if !ok {
		return PackageCommands{}, false
	}
	return PackageCommands{
		Install:      cast.ToString(m["install"]),
		InstallDev:   cast.ToString(m["installDev"]),
		Remove:       cast.ToString(m["remove"]),
		Update:       cast.ToString(m["update"]),
		Execute:      cast.ToString(m["execute"]),
		GlobalOption: cast.ToString(m["globalOption"]),
	}, true
}
