package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClasses_ResolveUnknown(t *testing.T) {
	classes := DefaultClasses()

	_, err := classes.Resolve("java.lang.Runtime")
	assert.ErrorIs(t, err, ErrUnknownClass)

	_, err = classes.Resolve("")
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestClasses_ResolveRegistered(t *testing.T) {
	classes := DefaultClasses()

	for _, name := range []string{ClassChe, ClassWorkInstruction, ClassUser, ClassOrganization, ClassFacility, ClassNetwork} {
		desc, err := classes.Resolve(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, desc.Name)
		assert.Equal(t, "floorlink.domain."+name, desc.Qualified)
	}
}

func TestClasses_NotifiableFlags(t *testing.T) {
	classes := DefaultClasses()

	che, _ := classes.Resolve(ClassChe)
	wi, _ := classes.Resolve(ClassWorkInstruction)
	user, _ := classes.Resolve(ClassUser)

	assert.True(t, che.Notifiable)
	assert.True(t, wi.Notifiable)
	assert.False(t, user.Notifiable)
}

func TestAccessor_PrefixAllowList(t *testing.T) {
	classes := DefaultClasses()
	che, _ := classes.Resolve(ClassChe)

	// Names outside the prefix allow-list never resolve, registered or not.
	for _, name := range []string{"Clone", "Tenant", "deleteEverything", "exec", "getClass"} {
		_, err := che.Accessor(name)
		if name == "getClass" {
			// allow-listed prefix, but not registered
			assert.ErrorIs(t, err, ErrUnknownAccessor, name)
			continue
		}
		assert.ErrorIs(t, err, ErrUnknownAccessor, name)
	}

	acc, err := che.Accessor("getStatus")
	require.NoError(t, err)
	assert.Equal(t, AccessorGet, acc.Kind)
	assert.Equal(t, "status", acc.Property)
}

func TestAccessor_PasswordNeverExposed(t *testing.T) {
	classes := DefaultClasses()
	user, _ := classes.Resolve(ClassUser)

	_, err := user.Accessor("getPasswordHash")
	assert.ErrorIs(t, err, ErrUnknownAccessor)

	_, ok := user.Property("passwordHash")
	assert.False(t, ok)

	net, _ := classes.Resolve(ClassNetwork)
	_, err = net.Accessor("getCredential")
	assert.ErrorIs(t, err, ErrUnknownAccessor)
}

func TestConvertArgs(t *testing.T) {
	acc := &Accessor{Name: "assignChe", Params: []ParamType{ParamString}}

	args, err := ConvertArgs(acc, []any{"che-1"})
	require.NoError(t, err)
	assert.Equal(t, []any{"che-1"}, args)

	_, err = ConvertArgs(acc, []any{42.0})
	assert.ErrorIs(t, err, ErrBadArgument)

	_, err = ConvertArgs(acc, nil)
	assert.ErrorIs(t, err, ErrBadArgument)

	_, err = ConvertArgs(acc, []any{"a", "b"})
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestConvertArgs_Numbers(t *testing.T) {
	intAcc := &Accessor{Name: "setPriority", Params: []ParamType{ParamInt}}

	// JSON numbers arrive as float64; integral values convert, fractional
	// values fail closed.
	args, err := ConvertArgs(intAcc, []any{3.0})
	require.NoError(t, err)
	assert.Equal(t, 3, args[0])

	_, err = ConvertArgs(intAcc, []any{3.5})
	assert.ErrorIs(t, err, ErrBadArgument)

	_, err = ConvertArgs(intAcc, []any{"3"})
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestCheSetStatus_RejectsUnknownValue(t *testing.T) {
	classes := DefaultClasses()
	desc, _ := classes.Resolve(ClassChe)
	acc, err := desc.Accessor("setStatus")
	require.NoError(t, err)

	che := &Che{ID: "che-1", OrgID: "org", Status: CheIdle}
	assert.NoError(t, acc.Set(che, CheMoving))
	assert.Equal(t, CheMoving, che.Status)

	err = acc.Set(che, "EXPLODED")
	assert.ErrorIs(t, err, ErrBadArgument)
	assert.Equal(t, CheMoving, che.Status)
}

func TestWorkInstructionAccessors(t *testing.T) {
	classes := DefaultClasses()
	desc, _ := classes.Resolve(ClassWorkInstruction)
	wi := &WorkInstruction{ID: "wi-1", OrgID: "org", Status: WINew, Zone: "A1", Sequence: 7}

	get, err := desc.Accessor("getStatus")
	require.NoError(t, err)
	assert.Equal(t, WINew, get.Get(wi))

	assign, err := desc.Accessor("assignChe")
	require.NoError(t, err)
	assert.True(t, assign.Mutates)
	_, err = assign.Invoke(nil, wi, []any{"che-2"})
	require.NoError(t, err)
	assert.Equal(t, WIAssigned, wi.Status)
	assert.Equal(t, "che-2", wi.CheID)

	complete, err := desc.Accessor("markComplete")
	require.NoError(t, err)
	_, err = complete.Invoke(nil, wi, nil)
	require.NoError(t, err)
	assert.Equal(t, WIComplete, wi.Status)
}
