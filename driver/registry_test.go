package driver

import (
	"errors"
	"slices"
	"testing"
)

// stubDriver is a Driver that only reports its name.
type stubDriver struct {
	Driver
	name string
}

func (d *stubDriver) Info() AdapterInfo { return AdapterInfo{Name: d.name, Driver: d.name} }

func stubFactory(name string) Factory {
	return func() (Driver, error) { return &stubDriver{name: name}, nil }
}

func failingFactory() (Driver, error) { return nil, errors.New("no adapter") }

// withRegistry swaps in an empty registry for the duration of a test.
func withRegistry(t *testing.T) {
	t.Helper()
	registryMu.Lock()
	saved := factories
	factories = make(map[string]Factory)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		factories = saved
		registryMu.Unlock()
	})
}

func TestRegistryRegisterAndGet(t *testing.T) {
	withRegistry(t)
	Register("test", stubFactory("test"))

	if !IsRegistered("test") {
		t.Fatal("test driver should be registered")
	}
	d, err := Get("test")
	if err != nil {
		t.Fatalf("Get(test) error = %v", err)
	}
	if d.Info().Name != "test" {
		t.Errorf("Info().Name = %q, want %q", d.Info().Name, "test")
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	withRegistry(t)
	if _, err := Get("nonexistent"); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Get(nonexistent) error = %v, want ErrNotAvailable", err)
	}
}

func TestRegistryGetFactoryError(t *testing.T) {
	withRegistry(t)
	Register("broken", failingFactory)
	if _, err := Get("broken"); err == nil {
		t.Error("Get(broken) should fail")
	}
}

func TestRegistryAvailableSorted(t *testing.T) {
	withRegistry(t)
	Register("zeta", stubFactory("zeta"))
	Register("alpha", stubFactory("alpha"))

	if got, want := Available(), []string{"alpha", "zeta"}; !slices.Equal(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}
}

func TestRegistryUnregister(t *testing.T) {
	withRegistry(t)
	Register("test", stubFactory("test"))
	Unregister("test")
	if IsRegistered("test") {
		t.Error("test driver should be unregistered")
	}
}

func TestRegistryDefault(t *testing.T) {
	tests := []struct {
		name       string
		registered map[string]Factory
		want       string
		wantErr    bool
	}{
		{
			name:       "wgpu preferred",
			registered: map[string]Factory{NameSoftware: stubFactory(NameSoftware), NameWGPU: stubFactory(NameWGPU)},
			want:       NameWGPU,
		},
		{
			name:       "fallback to software",
			registered: map[string]Factory{NameSoftware: stubFactory(NameSoftware), NameWGPU: failingFactory},
			want:       NameSoftware,
		},
		{
			name:       "unknown drivers after priority list",
			registered: map[string]Factory{"beta": stubFactory("beta"), "alpha": stubFactory("alpha")},
			want:       "alpha",
		},
		{
			name:       "nothing registered",
			registered: map[string]Factory{},
			wantErr:    true,
		},
		{
			name:       "all fail",
			registered: map[string]Factory{NameWGPU: failingFactory},
			wantErr:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withRegistry(t)
			for name, f := range tt.registered {
				Register(name, f)
			}
			d, err := Default()
			if tt.wantErr {
				if !errors.Is(err, ErrNotAvailable) {
					t.Fatalf("Default() error = %v, want ErrNotAvailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Default() error = %v", err)
			}
			if got := d.Info().Name; got != tt.want {
				t.Errorf("Default() = %q, want %q", got, tt.want)
			}
		})
	}
}
