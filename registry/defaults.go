package registry

// Default values applied when the dashboard config omits a key.
const (
	DefaultExecutable = "vendor/bin/codecept"
)

// DefaultTests lists the categories scanned when the config sets none.
func DefaultTests() map[string]bool {
	return map[string]bool{
		"acceptance": true,
		"functional": true,
		"unit":       true,
	}
}

// DefaultIgnore lists the support files that live next to tests but are not tests.
func DefaultIgnore() []string {
	return []string{
		"WebGuy.php",
		"TestGuy.php",
		"CodeGuy.php",
		"AcceptanceTester.php",
		"FunctionalTester.php",
		"UnitTester.php",
		"_bootstrap.php",
		".DS_Store",
	}
}
