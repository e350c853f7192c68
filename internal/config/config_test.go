package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ROOMFINDER_ADDR", ":9090")
	t.Setenv("ROOMFINDER_FETCH_TIMEOUT", "45s")
	t.Setenv("ROOMFINDER_RETENTION", "1500")
	t.Setenv("ROOMFINDER_MAX_CONCURRENT_SCRAPES", "2")
	t.Setenv("SMU_FBS_USERNAME", "student@smu.edu.sg")
	t.Setenv("SMU_FBS_PASSWORD", "hunter22")

	cfg := NewConfig()
	cfg.LoadFromEnvironment()

	require.Equal(t, ":9090", cfg.Addr)
	require.Equal(t, 45*time.Second, cfg.FetchTimeout)
	require.Equal(t, 1500*time.Millisecond, cfg.Retention)
	require.Equal(t, 2, cfg.MaxConcurrentScrapes)
	require.True(t, cfg.HasCredentials())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment_IgnoresGarbage(t *testing.T) {
	t.Setenv("ROOMFINDER_FETCH_TIMEOUT", "soon")
	t.Setenv("ROOMFINDER_MAX_CONCURRENT_SCRAPES", "many")

	cfg := NewConfig()
	cfg.LoadFromEnvironment()

	require.Equal(t, 2*time.Minute, cfg.FetchTimeout)
	require.Equal(t, 4, cfg.MaxConcurrentScrapes)
}

func TestValidate(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	cfg.MaxConcurrentScrapes = 0
	require.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.PortalURL = "not a url"
	require.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.Retention = time.Minute
	cfg.SweepInterval = 0
	require.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.Retention = 0
	cfg.SweepInterval = 0
	require.NoError(t, cfg.Validate())
}

const deploymentFile = `{
	// comments are allowed
	vocabulary: {
		buildings: ["Li Ka Shing Library"],
		floors: ["Level 1", "Level 2"],
		facility_types: ["Classroom"],
		equipment: ["Projector"],
	},
	status_labels: {
		booked: "Taken",
	},
}`

func TestLoadDeployment(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "roomfinder.json5")
	require.NoError(t, os.WriteFile(name, []byte(deploymentFile), 0600))

	deployment, err := LoadDeployment(name)
	require.NoError(t, err)

	require.Equal(t, []string{"Level 1", "Level 2"}, deployment.Vocabulary.Floors)
	require.Equal(t, "Taken", deployment.StatusLabels.Booked)
	require.Equal(t, "Available", deployment.StatusLabels.Available)
	require.Equal(t, "Under Maintenance", deployment.StatusLabels.Qualifiers["maintenance"])
}

func TestLoadDeployment_LocalOverride(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "roomfinder.json5")
	require.NoError(t, os.WriteFile(name, []byte(deploymentFile), 0600))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "roomfinder.local.json5"),
		[]byte(`{vocabulary: {equipment: ["TV Panel", "Projector"]}}`),
		0600,
	))

	deployment, err := LoadDeployment(name)
	require.NoError(t, err)

	require.Equal(t, []string{"TV Panel", "Projector"}, deployment.Vocabulary.Equipment)
	require.Equal(t, []string{"Li Ka Shing Library"}, deployment.Vocabulary.Buildings)
}

func TestLoadDeployment_ShippedFile(t *testing.T) {
	deployment, err := LoadDeployment(filepath.Join("..", "..", "roomfinder.json5"))
	require.NoError(t, err)

	require.Contains(t, deployment.Vocabulary.Buildings, "Li Ka Shing Library")
	require.Contains(t, deployment.Vocabulary.FacilityTypes, "Group Study Room")
	require.Len(t, deployment.StatusLabels.Qualifiers, 3)
}

func TestLoadDeployment_Missing(t *testing.T) {
	_, err := LoadDeployment(filepath.Join(t.TempDir(), "absent.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDeployment_IncompleteVocabulary(t *testing.T) {
	name := filepath.Join(t.TempDir(), "roomfinder.json5")
	require.NoError(t, os.WriteFile(name, []byte(`{vocabulary: {buildings: ["X"]}}`), 0600))

	_, err := LoadDeployment(name)
	require.Error(t, err)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROOMFINDER_TEST_VALUE=from-file\n"), 0600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("ROOMFINDER_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("ROOMFINDER_TEST_VALUE"))

	loaded := LoadEnvFiles()
	require.Contains(t, loaded, ".env")
	require.Equal(t, "from-file", os.Getenv("ROOMFINDER_TEST_VALUE"))
}
