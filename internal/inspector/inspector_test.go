package inspector

import (
	"strings"
	"testing"

	"github.com/dgallion1/tmplinspect/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rendered = `<!DOCTYPE html>
<html>
<body>
<!-- BEGIN app/views/layouts/application.html.erb -->
<main id="main">
  <!-- BEGIN app/views/orders/index.html.erb -->
  <table id="orders">
    <tbody>
      <!-- BEGIN app/views/orders/_row.html.erb -->
      <tr id="row"><td><a id="link" href="#">#1</a></td></tr>
      <!-- END app/views/orders/_row.html.erb -->
    </tbody>
  </table>
  <!-- END app/views/orders/index.html.erb -->
</main>
<!-- END app/views/layouts/application.html.erb -->
<footer id="footer">plain</footer>
</body>
</html>`

func TestInspect_FullChain(t *testing.T) {
	doc, err := document.Parse(strings.NewReader(rendered))
	require.NoError(t, err)
	link, err := document.ByID(doc, "link")
	require.NoError(t, err)

	got, ok := Inspect(link)
	require.True(t, ok)

	assert.Equal(t, "a", got.Target.Tag)
	assert.Equal(t, "app/views/orders/_row.html.erb", got.Path)
	assert.Equal(t, "row", got.Element.ID)

	require.Len(t, got.Chain, 2)
	assert.Equal(t, "app/views/layouts/application.html.erb", got.Chain[0].Path)
	assert.Equal(t, "main", got.Chain[0].Element.ID)
	assert.Equal(t, "app/views/orders/index.html.erb", got.Chain[1].Path)
	assert.Equal(t, "orders", got.Chain[1].Element.ID)

	assert.Equal(t, []string{
		"app/views/layouts/application.html.erb",
		"app/views/orders/index.html.erb",
	}, got.Breadcrumb.Parents)
	assert.Equal(t, "app/views/orders/_row.html.erb", got.Breadcrumb.Current)
}

func TestInspect_NotFound(t *testing.T) {
	doc, err := document.Parse(strings.NewReader(rendered))
	require.NoError(t, err)
	footer, err := document.ByID(doc, "footer")
	require.NoError(t, err)

	_, ok := Inspect(footer)
	assert.False(t, ok)
}

func TestNewBreadcrumb_DropdownOrder(t *testing.T) {
	bc := NewBreadcrumb("views/c/_leaf.erb", []string{"layouts/app.erb", "views/c/index.erb"})

	want := []DropdownItem{
		{Path: "views/c/_leaf.erb", Label: "_leaf.erb", Current: true},
		{Path: "views/c/index.erb", Label: "index.erb"},
		{Path: "layouts/app.erb", Label: "app.erb"},
	}
	assert.Equal(t, want, bc.Dropdown)
}

func TestNewBreadcrumb_NoParents(t *testing.T) {
	bc := NewBreadcrumb("a", nil)
	assert.NotNil(t, bc.Parents)
	assert.Empty(t, bc.Parents)
	require.Len(t, bc.Dropdown, 1)
	assert.True(t, bc.Dropdown[0].Current)
}
