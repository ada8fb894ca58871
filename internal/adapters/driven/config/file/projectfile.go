package file

import (
	"github.com/catalandres/sfdx-core/internal/adapters/driven/project"
	"github.com/catalandres/sfdx-core/internal/logger"
)

// projectKeysSkipped hold user-chosen names, so any case is allowed.
var projectKeysSkipped = []string{"packageAliases"}

// LoadProject reads the project file of the project containing
// loc.WorkDir. Keys starting with an uppercase letter are reported as a
// warning; the file is still returned.
func LoadProject(loc project.Locations) (*project.File, error) {
	root, err := project.ResolveProjectPath(loc.WorkDir)
	if err != nil {
		return nil, err
	}
	file, err := project.Load(root)
	if err != nil {
		return nil, err
	}
	if key, found := FindUpperCaseKey(file.Contents, projectKeysSkipped...); found {
		logger.Warn("project file: key %q must start with a lowercase letter", key)
	}
	return file, nil
}
