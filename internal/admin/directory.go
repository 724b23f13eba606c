package admin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chameleon-db/dsql/internal/config"
	"github.com/chameleon-db/dsql/internal/journal"
)

// Directory manages the .dsql/ directory structure
type Directory struct {
	rootDir string // .dsql/
}

// NewDirectory creates a new directory manager
func NewDirectory(workDir string) *Directory {
	return &Directory{
		rootDir: filepath.Join(workDir, ".dsql"),
	}
}

// Initialize creates the .dsql/ directory structure
func (d *Directory) Initialize() error {
	if err := os.MkdirAll(d.rootDir, 0755); err != nil {
		return fmt.Errorf("failed to create .dsql directory: %w", err)
	}

	for _, subdir := range []string{"journal", "rendered"} {
		path := filepath.Join(d.rootDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", subdir, err)
		}
	}

	return d.createGitignore()
}

// createGitignore creates .dsql/.gitignore
func (d *Directory) createGitignore() error {
	gitignorePath := filepath.Join(d.rootDir, ".gitignore")
	gitignoreContent := `# dsql local files
journal/
rendered/
`
	return os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644)
}

// GetPaths returns all directory paths
func (d *Directory) GetPaths() DirectoryPaths {
	return DirectoryPaths{
		Root:     d.rootDir,
		Journal:  filepath.Join(d.rootDir, "journal"),
		Rendered: filepath.Join(d.rootDir, "rendered"),
	}
}

// DirectoryPaths holds all important paths
type DirectoryPaths struct {
	Root     string
	Journal  string
	Rendered string // output of `dsql render --save`
}

// ManagerFactory creates the loaders and loggers bound to a work directory
type ManagerFactory struct {
	workDir string
	dir     *Directory
}

// NewManagerFactory creates a new manager factory
func NewManagerFactory(workDir string) *ManagerFactory {
	return &ManagerFactory{
		workDir: workDir,
		dir:     NewDirectory(workDir),
	}
}

// Initialize initializes the entire .dsql/ structure
func (mf *ManagerFactory) Initialize() error {
	return mf.dir.Initialize()
}

// Paths returns the .dsql/ paths
func (mf *ManagerFactory) Paths() DirectoryPaths {
	return mf.dir.GetPaths()
}

// CreateConfigLoader creates a config loader
func (mf *ManagerFactory) CreateConfigLoader() *config.Loader {
	return config.NewLoader(mf.workDir)
}

// CreateJournalLogger creates a journal logger
func (mf *ManagerFactory) CreateJournalLogger() (*journal.Logger, error) {
	return journal.NewLogger(mf.dir.GetPaths().Journal)
}

// Status returns the current directory structure status
func (mf *ManagerFactory) Status() (string, error) {
	paths := mf.dir.GetPaths()

	if _, err := os.Stat(paths.Root); err != nil {
		return "not_initialized", nil
	}

	status := "initialized\n"
	status += fmt.Sprintf("  Journal: %s\n", paths.Journal)
	status += fmt.Sprintf("  Rendered: %s\n", paths.Rendered)

	configPath := mf.CreateConfigLoader().Path()
	if _, err := os.Stat(configPath); err == nil {
		status += fmt.Sprintf("  Config: %s\n", configPath)
	} else {
		status += "  Config: none\n"
	}

	return status, nil
}
