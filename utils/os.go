package utils

import (
	"custodian-migrator/logger"
	"os"
)

func CloseFile(f *os.File) error {
	if err := f.Close(); err != nil {
		logger.Warn("Can't close file '%s': %s", f.Name(), err.Error())
		return err
	}
	return nil
}

// Contains tells whether a contains x.
func Contains(a []string, x string) bool {
	return IndexOf(a, x) >= 0
}

func IndexOf(a []string, x string) int {
	for i, n := range a {
		if x == n {
			return i
		}
	}
	return -1
}
