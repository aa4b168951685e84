// Copyright 2021 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package camera

import (
	"fmt"
	"io/ioutil"
	"sort"

	"gopkg.in/yaml.v3"
)

// Presets maps preset name -> device -> property -> value. It mirrors
// the operator-maintained YAML file of device setups.
type Presets map[string]map[string]map[string]interface{}

// LoadPresets reads the preset YAML file.
func LoadPresets(path string) (Presets, error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := Presets{}
	if err := yaml.Unmarshal(buf, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// Names returns the preset names in stable order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply pushes every device property of the named preset to the
// driver. The first property push failure aborts the apply.
func (p Presets) Apply(d Driver, name string) error {
	preset, ok := p[name]
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}

	for device, props := range preset {
		for key, val := range props {
			if err := d.SetProperty(device, key, fmt.Sprintf("%v", val)); err != nil {
				return fmt.Errorf("preset %v: %v/%v: %v", name, device, key, err)
			}
		}
	}
	return nil
}
