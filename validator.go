package storage

import (
	"errors"
	"strings"
)

func (c *Config) validate() error {
	if c.WriteOnlyDbConn == nil {
		return errors.New("storage: WriteOnlyDbConn must be set")
	}

	if !c.DoNotUseCache && c.Redis == nil {
		return errors.New("storage: Redis must be set unless DoNotUseCache is true")
	}

	if strings.TrimSpace(c.ServiceName) == "" {
		return errors.New("storage: ServiceName must be set")
	}

	if strings.Contains(c.ServiceName, "|") {
		return errors.New("storage: ServiceName must not contain `|`")
	}

	if c.DefaultTTL < 0 {
		return errors.New("storage: DefaultTTL must not be negative")
	}

	if len(c.Tables) == 0 {
		return errors.New("storage: at least one table must be configured")
	}
	return nil
}
