package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// FakeWorkflow is the record shape the fake engine stores and exports.
type FakeWorkflow struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Active bool   `json:"active,omitempty"`
}

// Fake is an in-memory Runtime for tests. It emulates the workflow engine
// CLI (export/import/version) in the app container and the mysqldump/mysql
// pair in the database container, plus file copies between "containers" and
// the host filesystem.
type Fake struct {
	mu sync.Mutex

	Reachable bool
	Running   map[string]bool

	// Workflows is the engine's authoritative store.
	Workflows []FakeWorkflow

	// Files holds container files keyed by "container:path".
	Files map[string][]byte

	// Replayed collects every dump streamed into the database client.
	Replayed []string
	Restarts []string

	RuntimeVersion string
	EngineVersion  string
	DBVersion      string

	// FailExport and FailDump force the matching command to fail.
	FailExport bool
	FailDump   bool
}

// NewFake returns a reachable fake with both containers running.
func NewFake(appContainer, dbContainer string) *Fake {
	return &Fake{
		Reachable:      true,
		Running:        map[string]bool{appContainer: true, dbContainer: true},
		Files:          make(map[string][]byte),
		RuntimeVersion: "24.0.7",
		EngineVersion:  "1.42.1",
		DBVersion:      "mysql  Ver 8.0.36",
	}
}

func (f *Fake) Ping(ctx context.Context) error {
	if !f.Reachable {
		return fmt.Errorf("cannot connect to the container runtime daemon")
	}
	return nil
}

func (f *Fake) ContainerRunning(ctx context.Context, name string) (bool, error) {
	if !f.Reachable {
		return false, fmt.Errorf("cannot connect to the container runtime daemon")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Running[name], nil
}

func (f *Fake) Exec(ctx context.Context, container string, cmd ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.Running[container] {
		return nil, fmt.Errorf("container %s is not running", container)
	}
	if len(cmd) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	switch {
	case len(cmd) >= 2 && cmd[1] == "export:workflow":
		if f.FailExport {
			return nil, fmt.Errorf("export command exited with status 1")
		}
		path := flagValue(cmd, "--output=")
		if path == "" {
			return nil, fmt.Errorf("export:workflow requires --output")
		}
		data, err := json.Marshal(f.Workflows)
		if err != nil {
			return nil, err
		}
		f.Files[container+":"+path] = data
		return []byte(fmt.Sprintf("Successfully exported %d workflows.\n", len(f.Workflows))), nil

	case len(cmd) >= 2 && cmd[1] == "import:workflow":
		path := flagValue(cmd, "--input=")
		data, ok := f.Files[container+":"+path]
		if !ok {
			return nil, fmt.Errorf("import file %s not found in container", path)
		}
		var records []FakeWorkflow
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("import file is not valid JSON: %w", err)
		}
		f.Workflows = records
		return []byte(fmt.Sprintf("Successfully imported %d workflows.\n", len(records))), nil

	case len(cmd) == 2 && cmd[1] == "--version":
		return []byte(f.EngineVersion + "\n"), nil

	case cmd[0] == "mysqldump":
		if f.FailDump {
			return nil, fmt.Errorf("mysqldump: Got error: 2002: connection refused")
		}
		return []byte(f.renderDump()), nil

	case cmd[0] == "mysql" && len(cmd) == 2 && cmd[1] == "--version":
		return []byte(f.DBVersion + "\n"), nil
	}

	return nil, fmt.Errorf("fake runtime: unhandled command %q", strings.Join(cmd, " "))
}

func (f *Fake) ExecInput(ctx context.Context, container string, input io.Reader, cmd ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.Running[container] {
		return fmt.Errorf("container %s is not running", container)
	}
	data, err := io.ReadAll(input)
	if err != nil {
		return err
	}
	if len(cmd) > 0 && cmd[0] == "mysql" {
		f.Replayed = append(f.Replayed, string(data))
		return nil
	}
	return fmt.Errorf("fake runtime: unhandled stdin command %q", strings.Join(cmd, " "))
}

func (f *Fake) CopyFrom(ctx context.Context, container, src, dst string) error {
	f.mu.Lock()
	data, ok := f.Files[container+":"+src]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such file in container: %s", src)
	}
	return os.WriteFile(dst, data, 0o644)
}

func (f *Fake) CopyTo(ctx context.Context, src, container, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.Files[container+":"+dst] = data
	f.mu.Unlock()
	return nil
}

func (f *Fake) Status(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Running[name] {
		return "", fmt.Errorf("container %s not found", name)
	}
	return "Up 3 days", nil
}

func (f *Fake) Version(ctx context.Context) (string, error) {
	if !f.Reachable {
		return "", fmt.Errorf("cannot connect to the container runtime daemon")
	}
	return f.RuntimeVersion, nil
}

func (f *Fake) Restart(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Running[name] {
		return fmt.Errorf("container %s not found", name)
	}
	f.Restarts = append(f.Restarts, name)
	return nil
}

// renderDump synthesizes a plausible logical dump so header and line-count
// validation behave as they do against a real server.
func (f *Fake) renderDump() string {
	var b strings.Builder
	b.WriteString("-- MySQL dump 10.13  Distrib 8.0.36, for Linux (x86_64)\n")
	b.WriteString("--\n-- Host: localhost    Database: workflows\n--\n")
	b.WriteString("/*!40101 SET NAMES utf8mb4 */;\n")
	b.WriteString("DROP TABLE IF EXISTS `workflow_entity`;\n")
	b.WriteString("CREATE TABLE `workflow_entity` (`id` varchar(36) NOT NULL, `name` text, PRIMARY KEY (`id`));\n")
	for _, w := range f.Workflows {
		fmt.Fprintf(&b, "INSERT INTO `workflow_entity` VALUES ('%s','%s');\n", w.ID, w.Name)
	}
	b.WriteString("/*!40103 SET TIME_ZONE=@OLD_TIME_ZONE */;\n")
	b.WriteString("-- Dump completed\n")
	return b.String()
}

func flagValue(cmd []string, prefix string) string {
	for _, arg := range cmd {
		if strings.HasPrefix(arg, prefix) {
			return strings.TrimPrefix(arg, prefix)
		}
	}
	return ""
}
