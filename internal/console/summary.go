// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package console

// PrintPublished prints the terminal success summary for a published card.
func (c *Console) PrintPublished(name string) {
	c.Blank()
	c.Successf("Success! Your business card is published as %s!", name)
	c.Infof("Run it anywhere with: npx %s", name)
	c.Notef("Note: Update the repository URL in package.json and push to your GitHub repository for future updates.")
}

// ManualCommands returns the shell commands that finish a publish by hand.
func ManualCommands(dir string, scoped bool) []string {
	publish := "npm publish"
	if scoped {
		publish += " --access=public"
	}
	return []string{
		"cd " + dir,
		"npm install",
		"npm login",
		publish,
	}
}

// PrintManualRecovery prints the terminal failure summary.
func (c *Console) PrintManualRecovery(dir string, scoped bool) {
	c.Warnf("You can try publishing manually by running:")
	for _, line := range ManualCommands(dir, scoped) {
		c.Warnf("  %s", line)
	}
	c.Notef("Note: Update the repository URL in package.json before publishing.")
}
