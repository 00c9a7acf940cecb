// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// ENVIRONMENT DETECTION
// =============================================================================

// gitTimeout bounds each git subprocess call.
const gitTimeout = 2 * time.Second

// envCacheTTL is how long detection results stay cached.
const envCacheTTL = 5 * time.Second

// PythonEnv describes an active Python environment.
type PythonEnv struct {
	Type    string // venv, conda, pipenv
	Name    string
	Path    string
	Display string
}

// GitInfo describes the git repository at the current directory.
type GitInfo struct {
	Branch     string
	HasChanges bool
	Ahead      int
	Behind     int
}

// Display returns the prompt indicator for the repository.
func (g *GitInfo) Display() string {
	s := "git:" + g.Branch
	if g.HasChanges {
		s += "●"
	}
	return s
}

// NodeEnv describes a Node project in the current directory.
type NodeEnv struct {
	Name       string
	Version    string
	HasModules bool
}

// Detector inspects the environment around the current working
// directory. Results are cached briefly since prompt rendering calls
// it on every input line.
type Detector struct {
	mu       sync.Mutex
	cachedAt time.Time
	python   *PythonEnv
	git      *GitInfo
	node     *NodeEnv
}

// NewDetector creates an environment detector.
func NewDetector() *Detector {
	return &Detector{}
}

// refresh repopulates the cache if it has expired.
func (d *Detector) refresh() {
	if time.Since(d.cachedAt) < envCacheTTL {
		return
	}
	d.python = detectPython()
	d.git = detectGit()
	d.node = detectNode()
	d.cachedAt = time.Now()
}

// Python returns the active Python environment, or nil.
func (d *Detector) Python() *PythonEnv {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refresh()
	return d.python
}

// Git returns repository info for the current directory, or nil.
func (d *Detector) Git() *GitInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refresh()
	return d.git
}

// Node returns Node project info for the current directory, or nil.
func (d *Detector) Node() *NodeEnv {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refresh()
	return d.node
}

// Invalidate drops the cache, forcing fresh detection. Called after cd.
func (d *Detector) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cachedAt = time.Time{}
}

// =============================================================================
// SUMMARIES
// =============================================================================

// EnvSummary renders the full environment report for the !env command.
func (d *Detector) EnvSummary() string {
	var b strings.Builder
	b.WriteString("Environment Status\n")

	if py := d.Python(); py != nil {
		fmt.Fprintf(&b, "  Python: %s %s\n", py.Type, py.Name)
	} else {
		b.WriteString("  Python: no virtual environment active\n")
	}

	if git := d.Git(); git != nil {
		fmt.Fprintf(&b, "  Git:    %s", git.Branch)
		if git.HasChanges {
			b.WriteString(" (uncommitted changes)")
		}
		if git.Ahead > 0 || git.Behind > 0 {
			fmt.Fprintf(&b, " [ahead %d, behind %d]", git.Ahead, git.Behind)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("  Git:    not a repository\n")
	}

	if node := d.Node(); node != nil {
		fmt.Fprintf(&b, "  Node:   %s@%s", node.Name, node.Version)
		if !node.HasModules {
			b.WriteString(" (node_modules missing)")
		}
		b.WriteString("\n")
	}

	if dir, err := os.Getwd(); err == nil {
		fmt.Fprintf(&b, "  Dir:    %s\n", dir)
	}

	return b.String()
}

// GitSummary renders the git report for the !git command.
func (d *Detector) GitSummary() string {
	git := d.Git()
	if git == nil {
		return "Not a git repository"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Branch: %s\n", git.Branch)
	if git.HasChanges {
		b.WriteString("Status: uncommitted changes\n")
	} else {
		b.WriteString("Status: clean\n")
	}
	if git.Ahead > 0 || git.Behind > 0 {
		fmt.Fprintf(&b, "Upstream: ahead %d, behind %d\n", git.Ahead, git.Behind)
	}

	if log := runGit("log", "--oneline", "-5"); log != "" {
		b.WriteString("Recent commits:\n")
		for _, line := range strings.Split(log, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

// StatusSummary renders the cwd summary for the !status command.
func (d *Detector) StatusSummary() string {
	var parts []string

	if py := d.Python(); py != nil {
		parts = append(parts, "🐍 "+py.Name)
	}
	if git := d.Git(); git != nil {
		parts = append(parts, "📊 "+git.Display())
	}
	if dir, err := os.Getwd(); err == nil {
		parts = append(parts, "📁 "+filepath.Base(dir))
	}
	parts = append(parts, "🕒 "+time.Now().Format("15:04"))

	return strings.Join(parts, " │ ")
}

// PromptIndicators returns the short indicators shown in the prompt.
func (d *Detector) PromptIndicators() []string {
	var indicators []string
	if py := d.Python(); py != nil {
		indicators = append(indicators, py.Display)
	}
	if git := d.Git(); git != nil {
		indicators = append(indicators, git.Display())
	}
	return indicators
}

// =============================================================================
// DETECTION
// =============================================================================

func detectPython() *PythonEnv {
	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		name := filepath.Base(venv)
		return &PythonEnv{Type: "venv", Name: name, Path: venv, Display: "(" + name + ")"}
	}
	if conda := os.Getenv("CONDA_DEFAULT_ENV"); conda != "" && conda != "base" {
		return &PythonEnv{Type: "conda", Name: conda, Display: "(conda:" + conda + ")"}
	}
	if os.Getenv("PIPENV_ACTIVE") != "" {
		dir, _ := os.Getwd()
		name := filepath.Base(dir)
		return &PythonEnv{Type: "pipenv", Name: name, Display: "(pipenv:" + name + ")"}
	}
	return nil
}

func detectGit() *GitInfo {
	if runGit("rev-parse", "--git-dir") == "" {
		return nil
	}

	branch := runGit("branch", "--show-current")
	if branch == "" {
		// Detached HEAD.
		if commit := runGit("rev-parse", "--short", "HEAD"); commit != "" {
			branch = "HEAD@" + commit
		} else {
			return nil
		}
	}

	info := &GitInfo{Branch: branch}
	info.HasChanges = runGit("status", "--porcelain") != ""

	if counts := runGit("rev-list", "--left-right", "--count", "HEAD...@{upstream}"); counts != "" {
		parts := strings.Fields(counts)
		if len(parts) == 2 {
			info.Ahead, _ = strconv.Atoi(parts[0])
			info.Behind, _ = strconv.Atoi(parts[1])
		}
	}
	return info
}

func detectNode() *NodeEnv {
	data, err := os.ReadFile("package.json")
	if err != nil {
		return nil
	}

	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}
	if pkg.Name == "" {
		pkg.Name = "node-project"
	}
	if pkg.Version == "" {
		pkg.Version = "0.0.0"
	}

	_, statErr := os.Stat("node_modules")
	return &NodeEnv{Name: pkg.Name, Version: pkg.Version, HasModules: statErr == nil}
}

// runGit runs a git subcommand with a short timeout and returns its
// trimmed stdout, or "" on any failure.
func runGit(args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
