package config

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/errors"
)

func LoadPersonaFromFile(file string) (persona entity.Persona, err error) {
	var yamlBytes []byte
	if yamlBytes, err = os.ReadFile(file); err != nil {
		err = errors.Wrapf(err, "failed to read file %s", file)
		return
	}

	if err = yaml.Unmarshal(yamlBytes, &persona); err != nil {
		err = errors.Wrapf(err, "failed to unmarshal file %s", file)
		return
	}

	if persona.Name == "" || persona.Prompt == "" || persona.ModelID == "" {
		err = errors.Wrapf(errors.ErrInvalidConfig, "persona file %s must set name, prompt and modelId", file)
		return
	}

	return
}

func LoadPersonasFromFiles(files []string) ([]entity.Persona, error) {
	personas := make([]entity.Persona, 0, len(files))
	for _, file := range files {
		persona, err := LoadPersonaFromFile(file)
		if err != nil {
			return nil, err
		}
		personas = append(personas, persona)
	}
	return personas, nil
}
