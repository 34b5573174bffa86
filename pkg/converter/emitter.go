package converter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Names of the generated dataset config artifacts.
const (
	ClassesFile    = "classes.names"
	DescriptorFile = "dataset.yaml"
	ReadmeFile     = "README.txt"
)

// datasetDescriptor is the dataset.yaml record consumed by YOLO trainers.
type datasetDescriptor struct {
	Path  string   `yaml:"path"`
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

// emitConfigs writes the class list, dataset descriptor and usage note.
// All three are pure functions of the output folder and the class mapping;
// re-running with the same mapping produces byte-identical class-list and
// descriptor content.
func emitConfigs(fs afero.Fs, outputDir string, mapping *ClassMapping) (map[string]string, error) {
	names := mapping.Names()

	classesPath := filepath.Join(outputDir, ClassesFile)
	var classes strings.Builder
	for _, name := range names {
		classes.WriteString(name)
		classes.WriteByte('\n')
	}
	if err := afero.WriteFile(fs, classesPath, []byte(classes.String()), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", ClassesFile, err)
	}

	absPath, err := filepath.Abs(outputDir)
	if err != nil {
		absPath = outputDir
	}
	descriptor := datasetDescriptor{
		Path:  absPath,
		Train: "images/" + SplitTrain,
		Val:   "images/" + SplitVal,
		NC:    mapping.Len(),
		Names: names,
	}
	data, err := yaml.Marshal(descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", DescriptorFile, err)
	}
	descriptorPath := filepath.Join(outputDir, DescriptorFile)
	if err := afero.WriteFile(fs, descriptorPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", DescriptorFile, err)
	}

	readmePath := filepath.Join(outputDir, ReadmeFile)
	if err := afero.WriteFile(fs, readmePath, []byte(readmeText()), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", ReadmeFile, err)
	}

	return map[string]string{
		ClassesFile:    classesPath,
		DescriptorFile: descriptorPath,
		ReadmeFile:     readmePath,
	}, nil
}

func readmeText() string {
	var b strings.Builder
	b.WriteString("YOLO format dataset\n")
	b.WriteString(strings.Repeat("=", 30) + "\n\n")
	b.WriteString("Folder layout:\n")
	b.WriteString("├── images/\n")
	b.WriteString("│   ├── train/     # training images\n")
	b.WriteString("│   └── val/       # validation images\n")
	b.WriteString("├── labels/\n")
	b.WriteString("│   ├── train/     # training labels\n")
	b.WriteString("│   └── val/       # validation labels\n")
	b.WriteString("├── dataset.yaml   # config for YOLOv5/v8/v9\n")
	b.WriteString("├── classes.names  # class name list\n")
	b.WriteString("└── README.txt     # this file\n\n")
	b.WriteString("Usage:\n")
	b.WriteString("Point your YOLO training run at dataset.yaml,\n")
	b.WriteString("e.g.: python train.py --data dataset.yaml\n")
	return b.String()
}
