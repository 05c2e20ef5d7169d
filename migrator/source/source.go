package source

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"custodian-migrator/logger"
	"custodian-migrator/migrator/description"
	"custodian-migrator/migrator/errors"
)

//Migration file, ordered by the integer its name starts with ("12_add_index.json" -> 12).
type File struct {
	Path  string
	Name  string
	Order int64
}

//Source lists migration files of a pattern, the list is rebuilt on every call.
type Source struct {
	pattern string
}

func New(pattern string) *Source {
	return &Source{pattern: pattern}
}

func (s *Source) Pattern() string {
	return s.pattern
}

func (s *Source) Files() ([]File, error) {
	return List(s.pattern)
}

//Load reads the descriptor of the file.
func (s *Source) Load(file File) (*description.MigrationDescription, error) {
	return Load(file)
}

//Expand turns the CLI argument into a glob: a directory matches its *.json files, a plain
//path is taken as a prefix, anything with glob metacharacters is used as is.
func Expand(pattern string) string {
	if info, err := os.Stat(pattern); err == nil && info.IsDir() {
		return filepath.Join(pattern, "*.json")
	}
	if !hasMeta(pattern) {
		return pattern + "*.json"
	}
	return pattern
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, `*?[\`)
}

//OrderOf parses the ordering prefix of a file name.
func OrderOf(path string) (int64, error) {
	name := filepath.Base(path)
	prefix := strings.SplitN(name, "_", 2)[0]
	order, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, errors.NewDiscoveryError(errors.ErrWrongOrderingPrefix, "Migration file '%s' has no numeric ordering prefix", name)
	}
	return order, nil
}

//List returns the files matching the pattern in application order. Nothing is returned
//if a single name is wrong: a partially ordered set is never applied.
func List(pattern string) ([]File, error) {
	glob := Expand(pattern)
	paths, err := filepath.Glob(glob)
	if err != nil {
		return nil, errors.NewDiscoveryError(errors.ErrBadPattern, "Bad migrations pattern '%s': %s", glob, err.Error())
	}

	files := make([]File, 0, len(paths))
	seen := make(map[int64]string, len(paths))
	for _, path := range paths {
		order, err := OrderOf(path)
		if err != nil {
			return nil, err
		}
		name := filepath.Base(path)
		if other, ok := seen[order]; ok {
			return nil, errors.NewDiscoveryError(errors.ErrDuplicatedOrdering, "Migration files '%s' and '%s' share the ordering prefix %d", other, name, order)
		}
		seen[order] = name
		files = append(files, File{Path: path, Name: name, Order: order})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Order < files[j].Order
	})
	logger.Debug("Found %d migration files for '%s'", len(files), glob)
	return files, nil
}

func Load(file File) (*description.MigrationDescription, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, errors.NewApplicationError(errors.ErrMigrationRead, "Can't open migration '%s': %s", file.Name, err.Error())
	}
	defer f.Close()

	return description.MigrationDescriptionFromJson(f)
}
