package credentials

import (
	"os"
	"strings"
)

// upsertEnvLine rewrites the env file with KEY=VALUE updated in place when a
// line for KEY exists, appended otherwise. All other lines, including
// comments and blanks, pass through untouched.
func upsertEnvLine(path, key, value string) error {
	var lines []string
	data, err := os.ReadFile(path) //#nosec G304 -- caller-configured env file
	switch {
	case err == nil:
		lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		if len(lines) == 1 && lines[0] == "" {
			lines = nil
		}
	case os.IsNotExist(err):
		// First write creates the file.
	default:
		return err
	}

	entry := key + "=" + value
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), key+"=") {
			lines[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, entry)
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600)
}
