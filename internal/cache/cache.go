// Package cache keeps one bearer credential per environment in an
// owner-only file under the user's home directory.
package cache

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cyverse-de/terrain-cli/internal/credential"
	"github.com/cyverse-de/terrain-cli/internal/failure"
)

const filePerm os.FileMode = 0o600

type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir, or at the user's home directory
// when dir is empty.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, failure.Fatal(failure.KindIO, "locate home directory", err)
		}
		dir = home
	}
	return &Store{Dir: dir}, nil
}

// Path returns the credential file for env.
func (s *Store) Path(env string) string {
	return filepath.Join(s.Dir, ".terrain-auth-"+env)
}

// Load returns the cached credential for env. The second result is false
// when there is no usable credential: the file is missing, or the token in
// it has expired, isn't valid yet, or can't be decoded. None of those is an
// error, the caller just logs in again.
func (s *Store) Load(env string) (string, bool, error) {
	path := s.Path(env)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("no cached credential")
		return "", false, nil
	}
	if err != nil {
		return "", false, failure.Fatal(failure.KindIO, "read cached credential", err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		log.Debug().Str("path", path).Msg("empty credential file")
		return "", false, nil
	}
	token := strings.TrimRight(line, " \t\r\n")

	if !credential.IsCurrentlyValid(token) {
		log.Debug().Str("path", path).Msg("cached credential is not currently valid")
		return "", false, nil
	}
	log.Debug().Str("path", path).Msg("using cached credential")
	return token, true, nil
}

// Save replaces the cached credential for env. The file is written to a
// temporary name, restricted to the owner and then renamed into place, so
// the token is never readable by anyone else. Failing to restrict the
// permissions fails the save.
func (s *Store) Save(env, token string) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return failure.Fatal(failure.KindIO, "save credential", fmt.Errorf("create cache dir: %w", err))
	}

	path := s.Path(env)
	tmp, err := os.CreateTemp(s.Dir, ".terrain-auth-"+env+".*.tmp")
	if err != nil {
		return failure.Fatal(failure.KindIO, "save credential", fmt.Errorf("create temp: %w", err))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return failure.Fatal(failure.KindIO, "save credential", fmt.Errorf("restrict permissions: %w", err))
	}
	if _, err := tmp.WriteString(strings.TrimSpace(token) + "\n"); err != nil {
		tmp.Close()
		return failure.Fatal(failure.KindIO, "save credential", fmt.Errorf("write temp: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return failure.Fatal(failure.KindIO, "save credential", fmt.Errorf("write temp: %w", err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return failure.Fatal(failure.KindIO, "save credential", err)
	}
	if err := os.Chmod(path, filePerm); err != nil {
		return failure.Fatal(failure.KindIO, "save credential", fmt.Errorf("restrict permissions: %w", err))
	}

	log.Debug().Str("path", path).Msg("cached credential")
	return nil
}
