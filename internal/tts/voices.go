package tts

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

var sayVoiceLine = regexp.MustCompile(`^(.+?)\s{2,}(\S+)\s+#`)

// ListVoices returns the voice ids the system speech command accepts.
func ListVoices(ctx context.Context) ([]string, error) {
	path, err := LookupSpeechCommand()
	if err != nil {
		return nil, err
	}
	if filepath.Base(path) == "say" {
		out, err := exec.CommandContext(ctx, path, "-v", "?").Output()
		if err != nil {
			return nil, fmt.Errorf("list say voices: %w", err)
		}
		return parseSayVoices(string(out)), nil
	}
	out, err := exec.CommandContext(ctx, path, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("list espeak voices: %w", err)
	}
	return parseEspeakVoices(string(out)), nil
}

// parseSayVoices reads `say -v ?` lines: "Name   locale   # sample".
func parseSayVoices(out string) []string {
	var ids []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		if m := sayVoiceLine.FindStringSubmatch(sc.Text()); m != nil {
			ids = append(ids, strings.TrimSpace(m[1]))
		}
	}
	return ids
}

// parseEspeakVoices reads the language column of `espeak-ng --voices`.
func parseEspeakVoices(out string) []string {
	var ids []string
	seen := map[string]bool{}
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		if id := fields[1]; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
