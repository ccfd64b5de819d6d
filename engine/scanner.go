package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"

	"devdeck/models"
	"devdeck/store"
)

// marker files and the tech stack entry each one implies ("" for none)
var projectMarkers = []struct {
	file string
	tech string
}{
	{"go.mod", "go"},
	{"package.json", "node"},
	{"Cargo.toml", "rust"},
	{"pyproject.toml", "python"},
	{".git", ""},
}

// directories never descended into
var prunedDirs = map[string]struct{}{
	"node_modules": {},
	"dist":         {},
	"build":        {},
	"vendor":       {},
	".next":        {},
	".vite":        {},
	"target":       {},
	".venv":        {},
	".git":         {},
}

// Discovered is a local checkout found by ScanDirectory.
type Discovered struct {
	Path    string
	Project models.Project
}

// ScanDirectory concurrently walks rootPath and returns every directory
// that carries a project marker, sorted by path. A worker pool inspects
// directories while the walk runs on the calling goroutine.
func ScanDirectory(ctx context.Context, rootPath string) ([]Discovered, error) {
	const workerCount = 10
	jobs := make(chan string, workerCount*4)
	results := make(chan Discovered, workerCount*4)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dir := range jobs {
				if d, ok, err := inspectDirectory(dir); err == nil && ok {
					results <- d
				}
			}
		}()
	}

	var found []Discovered
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for d := range results {
			found = append(found, d)
		}
	}()

	walkErr := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path != rootPath && errors.Is(err, os.ErrPermission) {
				return filepath.SkipDir
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := prunedDirs[d.Name()]; skip && path != rootPath {
			return filepath.SkipDir
		}
		jobs <- path
		return nil
	})

	close(jobs)
	wg.Wait()
	close(results)
	<-collected

	if walkErr != nil {
		return nil, walkErr
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

// inspectDirectory checks dir for project markers and builds a Project
// proposal from them.
func inspectDirectory(dir string) (Discovered, bool, error) {
	var stack []string
	matched := false
	for _, m := range projectMarkers {
		exists, err := fileExists(filepath.Join(dir, m.file))
		if err != nil {
			return Discovered{}, false, err
		}
		if !exists {
			continue
		}
		matched = true
		if m.tech != "" {
			stack = append(stack, m.tech)
		}
	}
	if !matched {
		return Discovered{}, false, nil
	}

	project := models.Project{
		Name:      filepath.Base(dir),
		TechStack: stack,
		Phase:     models.PhaseInDevelopment,
	}
	if remote := gitRemoteURL(dir); remote != "" {
		project.GithubURL = normalizeRemote(remote)
	}
	if project.TechStack == nil {
		project.TechStack = []string{}
	}
	return Discovered{Path: dir, Project: project}, true, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// gitRemoteURL returns the first URL of the origin remote, "" when dir is
// not a repository or has no origin.
func gitRemoteURL(dir string) string {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return ""
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return ""
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// normalizeRemote turns GitHub ssh remotes into browsable https URLs and
// strips the .git suffix. Other remotes pass through.
func normalizeRemote(remote string) string {
	switch {
	case strings.HasPrefix(remote, "git@github.com:"):
		remote = "https://github.com/" + strings.TrimPrefix(remote, "git@github.com:")
	case strings.HasPrefix(remote, "ssh://git@github.com/"):
		remote = "https://github.com/" + strings.TrimPrefix(remote, "ssh://git@github.com/")
	}
	if strings.HasPrefix(remote, "https://github.com/") {
		remote = strings.TrimSuffix(remote, ".git")
	}
	return remote
}

// ImportResult reports what ImportDiscovered did.
type ImportResult struct {
	Added   []models.Project
	Skipped []string
}

// ImportDiscovered adds every discovered project whose name is not already
// in the store, comparing names case-insensitively.
func ImportDiscovered(s *store.Store, found []Discovered) (ImportResult, error) {
	taken := map[string]bool{}
	for _, p := range s.Projects() {
		taken[strings.ToLower(p.Name)] = true
	}

	var res ImportResult
	for _, d := range found {
		key := strings.ToLower(d.Project.Name)
		if taken[key] {
			res.Skipped = append(res.Skipped, d.Project.Name)
			continue
		}
		p, err := s.AddProject(d.Project)
		if err != nil {
			return res, err
		}
		taken[key] = true
		res.Added = append(res.Added, p)
	}
	return res, nil
}
