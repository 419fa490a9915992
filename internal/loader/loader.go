package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/toolsascode/migrun/internal/registry"
)

// VersionLayout formats the timestamp used as version for new migrations
const VersionLayout = "20060102150405"

const (
	directionUp   = "up"
	directionDown = "down"
)

var (
	// ErrInvalidFileName is returned for a .up.sql or .down.sql file whose
	// name is not {version}_{name}.{up|down}.sql
	ErrInvalidFileName = errors.New("invalid migration file name")

	// ErrMissingUp is returned when a down file has no matching up file
	ErrMissingUp = errors.New("migration has no up file")

	fileNameRegex = regexp.MustCompile(`^(\d+)_([A-Za-z0-9][A-Za-z0-9_\-]*)\.(up|down)\.sql$`)
	nameRegex     = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]*$`)
)

// Loader reads SQL migrations from a file system. Files are named
// {version}_{name}.up.sql and {version}_{name}.down.sql and may live in
// nested directories.
type Loader struct {
	fsys   fs.FS
	logger logrus.FieldLogger
}

// New creates a loader over fsys, typically an embed.FS
func New(fsys fs.FS, logger logrus.FieldLogger) *Loader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{fsys: fsys, logger: logger}
}

// NewDir creates a loader over a directory on disk
func NewDir(dir string, logger logrus.FieldLogger) *Loader {
	return New(os.DirFS(dir), logger)
}

type pair struct {
	version  int64
	name     string
	up, down string
	hasUp    bool
	upPath   string
}

// Load returns one Script per version found, sorted by version. A missing
// root directory yields no migrations.
func (l *Loader) Load() ([]*registry.Script, error) {
	if _, err := fs.Stat(l.fsys, "."); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Migrations directory does not exist")
			return nil, nil
		}
		return nil, err
	}

	pairs := make(map[int64]*pair)
	err := fs.WalkDir(l.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		base := path.Base(p)
		if !strings.HasSuffix(base, ".up.sql") && !strings.HasSuffix(base, ".down.sql") {
			return nil
		}

		version, name, direction, err := ParseFileName(base)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}

		content, err := fs.ReadFile(l.fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		entry, ok := pairs[version]
		if !ok {
			entry = &pair{version: version, name: name}
			pairs[version] = entry
		} else if entry.name != name {
			return fmt.Errorf("%w: %d (%s and %s)", registry.ErrDuplicateVersion, version, entry.name, name)
		}

		switch direction {
		case directionUp:
			if entry.hasUp {
				return fmt.Errorf("%w: %d has two up files (%s, %s)", registry.ErrDuplicateVersion, version, entry.upPath, p)
			}
			entry.up, entry.hasUp, entry.upPath = string(content), true, p
		case directionDown:
			entry.down = string(content)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	scripts := make([]*registry.Script, 0, len(pairs))
	for _, p := range pairs {
		if !p.hasUp {
			return nil, fmt.Errorf("%d_%s: %w", p.version, p.name, ErrMissingUp)
		}
		scripts = append(scripts, registry.NewScript(p.version, p.name, p.up, p.down))
	}
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Version() < scripts[j].Version()
	})

	return scripts, nil
}

// LoadInto loads every migration and registers it with reg
func (l *Loader) LoadInto(reg *registry.Registry) (int, error) {
	scripts, err := l.Load()
	if err != nil {
		return 0, err
	}
	for _, s := range scripts {
		if err := reg.Register(s); err != nil {
			return 0, err
		}
	}
	l.logger.WithField("count", len(scripts)).Debug("Loaded SQL migrations")
	return len(scripts), nil
}

// ParseFileName splits {version}_{name}.{up|down}.sql into its parts
func ParseFileName(fileName string) (version int64, name, direction string, err error) {
	matches := fileNameRegex.FindStringSubmatch(fileName)
	if len(matches) != 4 {
		return 0, "", "", fmt.Errorf("%w: %q", ErrInvalidFileName, fileName)
	}

	version, err = strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("%w: version of %q: %v", ErrInvalidFileName, fileName, err)
	}
	return version, matches[2], matches[3], nil
}

// Create writes an empty up/down pair for a new migration named name into
// dir, versioned by now
func Create(dir, name string, now time.Time) (upPath, downPath string, err error) {
	if !nameRegex.MatchString(name) {
		return "", "", fmt.Errorf("%w: name %q may only contain letters, digits, '_' and '-'", ErrInvalidFileName, name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	base := fmt.Sprintf("%s_%s", now.UTC().Format(VersionLayout), name)
	upPath = filepath.Join(dir, base+".up.sql")
	downPath = filepath.Join(dir, base+".down.sql")

	for _, f := range []struct {
		path, body string
	}{
		{upPath, "-- " + name + " (up)\n"},
		{downPath, "-- " + name + " (down)\n"},
	} {
		file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return "", "", fmt.Errorf("failed to create %s: %w", f.path, err)
		}
		if _, err := file.WriteString(f.body); err != nil {
			file.Close()
			return "", "", fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		if err := file.Close(); err != nil {
			return "", "", err
		}
	}

	return upPath, downPath, nil
}
