package config

import "fmt"

// Validate checks structural and cross-field invariants that the YAML
// decoder cannot express. A non-nil error here is fatal at startup, per the
// "missing/invalid config" row of the service's error handling table.
func Validate(c *Config) error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("at least one server must be configured")
	}

	names := make(map[string]bool, len(c.Servers))
	for i, s := range c.Servers {
		if s.Name == "" {
			return fmt.Errorf("servers[%d]: name is required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("servers[%d]: duplicate server name %q", i, s.Name)
		}
		names[s.Name] = true

		if s.Host == "" {
			return fmt.Errorf("server %q: host is required", s.Name)
		}
		if s.Port == 0 {
			return fmt.Errorf("server %q: port is required", s.Name)
		}
		if s.Username == "" {
			return fmt.Errorf("server %q: username is required", s.Name)
		}
		if len(s.Mailboxes) == 0 {
			return fmt.Errorf("server %q: at least one mailbox must be configured", s.Name)
		}
		mailboxNames := make(map[string]bool, len(s.Mailboxes))
		for _, route := range s.Mailboxes {
			if route.Name == "" {
				return fmt.Errorf("server %q: mailbox name is required", s.Name)
			}
			if mailboxNames[route.Name] {
				return fmt.Errorf("server %q: duplicate mailbox %q", s.Name, route.Name)
			}
			mailboxNames[route.Name] = true
			if route.Success == "" || route.Failure == "" {
				return fmt.Errorf("server %q mailbox %q: success and failure routes are both required", s.Name, route.Name)
			}
			if route.Success == route.Name || route.Failure == route.Name {
				return fmt.Errorf("server %q mailbox %q: success/failure route cannot be the source mailbox itself", s.Name, route.Name)
			}
		}
	}

	if c.Runtime.MaxQueryMessages <= 0 {
		return fmt.Errorf("runtime.max_query_messages must be positive")
	}
	if c.Runtime.QueryInterval <= 0 {
		return fmt.Errorf("runtime.query_interval must be positive")
	}

	for name, attrType := range c.Runtime.PermittedBodyAttributes {
		if !attrType.valid() {
			return fmt.Errorf("runtime.permitted_body_attributes[%s]: unknown type %q", name, attrType)
		}
	}

	for i := range c.Runtime.CommentDelimiters {
		if err := c.Runtime.CommentDelimiters[i].Compile(); err != nil {
			return fmt.Errorf("runtime.comment_delimiters[%d]: %w", i, err)
		}
	}

	if c.Runtime.OnPersonNotFound == "" {
		c.Runtime.OnPersonNotFound = OnPersonNotFoundMoveToFailureFolder
	}
	if !c.Runtime.OnPersonNotFound.valid() {
		return fmt.Errorf("runtime.on_person_not_found: unknown mode %q", c.Runtime.OnPersonNotFound)
	}

	if c.Runtime.Spam.Enabled && c.Runtime.Spam.MaxOccurrences <= 0 {
		return fmt.Errorf("runtime.spam.max_num_of_issues must be positive when spam detection is enabled")
	}

	if c.REST.BaseURL == "" {
		return fmt.Errorf("rest.base_url is required")
	}

	return nil
}
