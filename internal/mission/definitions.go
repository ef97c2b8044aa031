package mission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const profileSchema = `{
  "type": "object",
  "required": ["phases"],
  "properties": {
    "mission_id": {"type": "string"},
    "name": {"type": "string"},
    "phases": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["task_list_file"],
        "properties": {
          "name": {"type": "string"},
          "task_list_file": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

const taskListSchema = `{
  "definitions": {
    "task": {
      "type": "object",
      "required": ["task_id"],
      "properties": {
        "task_id": {"type": "string", "minLength": 1},
        "type": {"type": "string"},
        "effects": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["action"],
            "properties": {
              "action": {"type": "string", "minLength": 1},
              "count": {"type": "integer", "minimum": 0},
              "quantity": {"type": "number", "minimum": 0},
              "inputs": {
                "type": "array",
                "items": {
                  "type": "object",
                  "required": ["material", "quantity"],
                  "properties": {
                    "material": {"type": "string"},
                    "quantity": {"type": "number", "minimum": 0}
                  }
                }
              }
            }
          }
        }
      }
    },
    "tasks": {"type": "array", "items": {"$ref": "#/definitions/task"}}
  },
  "oneOf": [
    {"$ref": "#/definitions/tasks"},
    {
      "type": "object",
      "required": ["tasks"],
      "properties": {"tasks": {"$ref": "#/definitions/tasks"}}
    }
  ]
}`

const manifestSchema = `{
  "type": "object",
  "properties": {
    "inventory": {
      "type": "object",
      "properties": {
        "units": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["name"],
            "properties": {
              "name": {"type": "string"},
              "count": {"type": "integer", "minimum": 0}
            }
          }
        }
      }
    }
  }
}`

// FileDefinitions loads mission definitions from a directory tree laid out
// as <root>/<dir>/<id>_profile_v1.json, with phase task lists and an optional
// <id>_manifest_v1.json beside it. <dir> is the id with underscores turned
// into hyphens, or the id itself. A mission without a profile may ship a
// single <id>_tasks_v1.json instead. Task list files hold either a bare
// array of tasks or an object with a "tasks" array.
type FileDefinitions struct {
	root     string
	profile  *jsonschema.Schema
	taskList *jsonschema.Schema
	manifest *jsonschema.Schema
}

// NewFileDefinitions compiles the document schemas.
func NewFileDefinitions(root string) (*FileDefinitions, error) {
	c := jsonschema.NewCompiler()
	schemas := map[string]string{
		"profile.json":  profileSchema,
		"tasks.json":    taskListSchema,
		"manifest.json": manifestSchema,
	}
	for name, src := range schemas {
		if err := c.AddResource(name, strings.NewReader(src)); err != nil {
			return nil, fmt.Errorf("adding schema %s: %w", name, err)
		}
	}
	d := &FileDefinitions{root: root}
	var err error
	if d.profile, err = c.Compile("profile.json"); err != nil {
		return nil, fmt.Errorf("compiling profile schema: %w", err)
	}
	if d.taskList, err = c.Compile("tasks.json"); err != nil {
		return nil, fmt.Errorf("compiling task schema: %w", err)
	}
	if d.manifest, err = c.Compile("manifest.json"); err != nil {
		return nil, fmt.Errorf("compiling manifest schema: %w", err)
	}
	return d, nil
}

type profileDoc struct {
	Phases []struct {
		Name         string `json:"name"`
		TaskListFile string `json:"task_list_file"`
	} `json:"phases"`
}

// taskList decodes both task list forms.
type taskList []Task

func (l *taskList) UnmarshalJSON(b []byte) error {
	if t := bytes.TrimSpace(b); len(t) > 0 && t[0] == '{' {
		var doc struct {
			Tasks []Task `json:"tasks"`
		}
		if err := json.Unmarshal(t, &doc); err != nil {
			return err
		}
		*l = doc.Tasks
		return nil
	}
	var tasks []Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		return err
	}
	*l = tasks
	return nil
}

type manifestDoc struct {
	Inventory Manifest `json:"inventory"`
}

// Load reads and validates the mission's documents and flattens all phase
// task lists in order. A phase whose task list file is missing is skipped.
func (d *FileDefinitions) Load(missionID string) (*Definition, error) {
	dir := d.missionDir(missionID)
	def := &Definition{ID: missionID}

	var prof profileDoc
	err := d.readDoc(filepath.Join(dir, missionID+"_profile_v1.json"), d.profile, &prof)
	switch {
	case err == nil:
		for _, ph := range prof.Phases {
			var tasks taskList
			err := d.readDoc(filepath.Join(dir, ph.TaskListFile), d.taskList, &tasks)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("phase %q of %s: %w", ph.Name, missionID, err)
			}
			def.Tasks = append(def.Tasks, tasks...)
		}
	case errors.Is(err, fs.ErrNotExist):
		var tasks taskList
		err := d.readDoc(filepath.Join(dir, missionID+"_tasks_v1.json"), d.taskList, &tasks)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", missionID, ErrDefinitionNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("task list of %s: %w", missionID, err)
		}
		def.Tasks = tasks
	default:
		return nil, fmt.Errorf("profile of %s: %w", missionID, err)
	}

	var man manifestDoc
	err = d.readDoc(filepath.Join(dir, missionID+"_manifest_v1.json"), d.manifest, &man)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("manifest of %s: %w", missionID, err)
	}
	def.Manifest = man.Inventory
	return def, nil
}

// missionDir prefers the hyphenated directory name and falls back to the id.
func (d *FileDefinitions) missionDir(missionID string) string {
	hyphenated := filepath.Join(d.root, strings.ReplaceAll(missionID, "_", "-"))
	if fi, err := os.Stat(hyphenated); err == nil && fi.IsDir() {
		return hyphenated
	}
	return filepath.Join(d.root, missionID)
}

// readDoc validates the file against schema before decoding into v.
func (d *FileDefinitions) readDoc(path string, schema *jsonschema.Schema, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("validating %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}
