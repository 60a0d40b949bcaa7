package terminplaner

import "fmt"

// DOM shape of a DFN Terminplaner poll page. The poll is one table:
// column headers carry the slot id and a human readable datetime in
// their title attribute, body cells reference their header through the
// headers attribute.
const (
	passwordInput  = "#password"
	passwordSubmit = ".btn-success"
	resultsTable   = ".results"
	headerCells    = ".results thead th"
	bodyCells      = ".results tbody td[headers]"
	availableMark  = ".yes"

	// first-time claim form on the public page
	claimNameInput = `input[name="name"]`
	claimMailInput = `input[name="mail"]`
	claimSave      = `button[name="save"]`

	// post-claim confirmation view: a personal edit link is issued
	// through a separate mail form and printed in a banner
	claimConfirmation = ".alert-success"
	editLinkMailInput = `.edit-link-form input[name="mail"]`
	editLinkRequest   = `.edit-link-form button[type="submit"]`
	editLinkBanner    = ".edit-link-confirmation"

	// the edit page commits through its own control, not the public
	// claim form's save button
	editSave = `button[name="save_edited_vote"]`
)

func yesRadio(id string) string {
	return fmt.Sprintf(`td[headers="%s"] input[type="radio"][value="yes"]`, id)
}

func noRadio(id string) string {
	return fmt.Sprintf(`td[headers="%s"] input[type="radio"][value="no"]`, id)
}
