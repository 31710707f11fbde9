package surveillance

import "path/filepath"

// Used to get and set arbitrary config variables

// ConfigPath is the path in the config store
var ConfigPath = "surveillance/config/"

// GetConfig fetches a config value from the config store
func (c *Context) GetConfig(key string) (string, error) {
	v, err := c.kv.Get(filepath.Join(ConfigPath, key))
	if err != nil {
		return "", err
	}

	return string(v.Data), nil
}

// SetConfig stores a config value in the config store
func (c *Context) SetConfig(key, val string) error {
	return c.kv.Set(filepath.Join(ConfigPath, key), val)
}
