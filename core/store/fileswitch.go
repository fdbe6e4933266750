package store

import "strings"

// FileSwitchDirectory routes each operation to one of two underlying
// directories based on the file's extension, letting callers place
// hot files (e.g. the term dictionary index, norms) on fast media
// while cold files (stored fields, term vectors) spill elsewhere.
type FileSwitchDirectory struct {
	primaryExtensions map[string]bool
	primaryDir        Directory
	secondaryDir      Directory
}

// NewFileSwitchDirectory routes names whose extension (without the
// leading dot) is in primaryExtensions to primaryDir, and everything
// else to secondaryDir.
func NewFileSwitchDirectory(primaryExtensions []string, primaryDir, secondaryDir Directory) *FileSwitchDirectory {
	set := make(map[string]bool, len(primaryExtensions))
	for _, ext := range primaryExtensions {
		set[ext] = true
	}
	return &FileSwitchDirectory{
		primaryExtensions: set,
		primaryDir:        primaryDir,
		secondaryDir:      secondaryDir,
	}
}

func (d *FileSwitchDirectory) extensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i+1:]
}

func (d *FileSwitchDirectory) dirFor(name string) Directory {
	if d.primaryExtensions[d.extensionOf(name)] {
		return d.primaryDir
	}
	return d.secondaryDir
}

func (d *FileSwitchDirectory) ListAll() ([]string, error) {
	primary, err := d.primaryDir.ListAll()
	if err != nil {
		return nil, err
	}
	secondary, err := d.secondaryDir.ListAll()
	if err != nil {
		return nil, err
	}
	return append(primary, secondary...), nil
}

func (d *FileSwitchDirectory) FileExists(name string) bool {
	return d.dirFor(name).FileExists(name)
}

func (d *FileSwitchDirectory) FileLength(name string) (int64, error) {
	return d.dirFor(name).FileLength(name)
}

func (d *FileSwitchDirectory) FileModified(name string) (int64, error) {
	return d.dirFor(name).FileModified(name)
}

func (d *FileSwitchDirectory) CreateOutput(name string) (IndexOutput, error) {
	return d.dirFor(name).CreateOutput(name)
}

func (d *FileSwitchDirectory) OpenInput(name string, bufferSize int) (IndexInput, error) {
	return d.dirFor(name).OpenInput(name, bufferSize)
}

func (d *FileSwitchDirectory) DeleteFile(name string) error {
	return d.dirFor(name).DeleteFile(name)
}

func (d *FileSwitchDirectory) Rename(oldName, newName string) error {
	// Names are expected to share an extension across a rename; route
	// on the old name since both sides of the Directory contract agree.
	return d.dirFor(oldName).Rename(oldName, newName)
}

func (d *FileSwitchDirectory) Sync(names []string) error {
	var primaryNames, secondaryNames []string
	for _, n := range names {
		if d.primaryExtensions[d.extensionOf(n)] {
			primaryNames = append(primaryNames, n)
		} else {
			secondaryNames = append(secondaryNames, n)
		}
	}
	if len(primaryNames) > 0 {
		if err := d.primaryDir.Sync(primaryNames); err != nil {
			return err
		}
	}
	if len(secondaryNames) > 0 {
		if err := d.secondaryDir.Sync(secondaryNames); err != nil {
			return err
		}
	}
	return nil
}

func (d *FileSwitchDirectory) MakeLock(name string) Lock {
	return d.dirFor(name).MakeLock(name)
}

func (d *FileSwitchDirectory) Close() error {
	err1 := d.primaryDir.Close()
	err2 := d.secondaryDir.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
