package terminplaner

import (
	"context"
	"testing"

	"trainslot-backend/lib/browser/browsertest"

	"github.com/stretchr/testify/require"
)

const claimConfirmationPage = `<html><body>
<div class="alert-success">Deine Auswahl wurde gespeichert.</div>
<form class="edit-link-form">
<input name="mail">
<button type="submit">Link anfordern</button>
</form>
</body></html>`

const editLinkIssuedPage = `<html><body>
<div class="edit-link-confirmation">
<a href="https://terminplaner4.dfn.de/week41/vote/abc123#u">https://terminplaner4.dfn.de/week41/vote/abc123#u</a>
</div>
</body></html>`

// edit page after the empty selection was committed: nothing checked
const clearedEditPage = `<html><body>
<form>
<table class="results">
<thead><tr>
<th id="C0" title="Mo 06.10. 10:00 - 11:00">Mo</th>
<th id="C1" title="Mo 06.10. 11:00 - 12:00">Mo</th>
<th id="C2" title="Di 07.10. 10:00 - 11:00">Di</th>
</tr></thead>
<tbody>
<tr>
<td headers="C0"><input type="radio" name="choices[0]" value="yes"><input type="radio" name="choices[0]" value="no" checked></td>
<td headers="C1"><input type="radio" name="choices[1]" value="yes"><input type="radio" name="choices[1]" value="no" checked></td>
<td headers="C2"><input type="radio" name="choices[2]" value="yes"><input type="radio" name="choices[2]" value="no" checked></td>
</tr>
</tbody>
</table>
<button name="save_edited_vote">Aktualisieren</button>
</form>
</body></html>`

// results view shown after a commit, no form controls
const committedResultsPage = `<html><body>
<table class="results"><thead><tr>
<th id="C0" title="Mo 06.10. 10:00 - 11:00">Mo</th>
</tr></thead></table>
</body></html>`

func TestClaim(t *testing.T) {
	page := &browsertest.FakePage{
		Routes: map[string][]string{
			"https://terminplaner4.dfn.de/week41": {publicPollPage},
		},
		Clicks: map[string][]string{
			`button[name="save"]`:                   {claimConfirmationPage},
			`.edit-link-form button[type="submit"]`: {editLinkIssuedPage},
		},
	}
	b := &browsertest.FakeBrowser{Pages: []*browsertest.FakePage{page}}

	editLink, err := Claim(context.Background(), b, ClaimRequest{
		WeekLink: "https://terminplaner4.dfn.de/week41",
		Password: "s3cret",
		Username: "erika",
		Email:    "erika@example.org",
		Ids:      []string{"C0", "C2"},
	})
	require.NoError(t, err)
	require.Equal(t, "https://terminplaner4.dfn.de/week41/vote/abc123#u", editLink)

	require.Equal(t, []string{
		"navigate https://terminplaner4.dfn.de/week41",
		`click td[headers="C0"] input[type="radio"][value="yes"]`,
		`click td[headers="C2"] input[type="radio"][value="yes"]`,
		`fill input[name="name"]=erika`,
		`fill input[name="mail"]=erika@example.org`,
		`click button[name="save"]`,
		"wait .alert-success",
		`fill .edit-link-form input[name="mail"]=erika@example.org`,
		`click .edit-link-form button[type="submit"]`,
		"wait .edit-link-confirmation",
	}, page.Ops)
	require.True(t, page.Closed)
}

func TestClaimWithoutClaimForm(t *testing.T) {
	// an already-claimed week renders the edit form, not the claim form
	page := &browsertest.FakePage{
		Routes: map[string][]string{
			"https://terminplaner4.dfn.de/week41": {clearedEditPage},
		},
	}
	b := &browsertest.FakeBrowser{Pages: []*browsertest.FakePage{page}}

	_, err := Claim(context.Background(), b, ClaimRequest{
		WeekLink: "https://terminplaner4.dfn.de/week41",
		Ids:      []string{"C0"},
	})
	require.ErrorIs(t, err, SubmitControlMissing)
	require.True(t, page.Closed)
}

func TestResubmit(t *testing.T) {
	editLink := "https://terminplaner4.dfn.de/week41/vote/abc123"
	page := &browsertest.FakePage{
		Routes: map[string][]string{
			editLink: {editPollPage, clearedEditPage},
		},
		Clicks: map[string][]string{
			`button[name="save_edited_vote"]`: {committedResultsPage, committedResultsPage},
		},
	}
	b := &browsertest.FakeBrowser{Pages: []*browsertest.FakePage{page}}

	err := Resubmit(context.Background(), b, ResubmitRequest{
		EditLink: editLink,
		Password: "s3cret",
		Ids:      []string{"C1"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		// round trip 1: clear C0 and C2, commit the empty selection
		"navigate " + editLink,
		`click td[headers="C0"] input[type="radio"][value="no"]`,
		`click td[headers="C2"] input[type="radio"][value="no"]`,
		`click button[name="save_edited_vote"]`,
		"wait .results",
		// round trip 2: reload, select C1, commit
		"navigate " + editLink,
		`click td[headers="C1"] input[type="radio"][value="yes"]`,
		`click button[name="save_edited_vote"]`,
		"wait .results",
	}, page.Ops)
	require.True(t, page.Closed)
}

func TestResubmitNothingPreviouslySelected(t *testing.T) {
	// clearing an already-empty selection deselects nothing but still
	// commits, keeping both round trips unconditional
	editLink := "https://terminplaner4.dfn.de/week41/vote/abc123"
	page := &browsertest.FakePage{
		Routes: map[string][]string{
			editLink: {clearedEditPage, clearedEditPage},
		},
		Clicks: map[string][]string{
			`button[name="save_edited_vote"]`: {committedResultsPage, committedResultsPage},
		},
	}
	b := &browsertest.FakeBrowser{Pages: []*browsertest.FakePage{page}}

	err := Resubmit(context.Background(), b, ResubmitRequest{
		EditLink: editLink,
		Ids:      []string{"C1"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		"navigate " + editLink,
		`click button[name="save_edited_vote"]`,
		"wait .results",
		"navigate " + editLink,
		`click td[headers="C1"] input[type="radio"][value="yes"]`,
		`click button[name="save_edited_vote"]`,
		"wait .results",
	}, page.Ops)
}

func TestResubmitPartialWhenClearNeverConfirms(t *testing.T) {
	// the clear commit is dispatched but the results view never
	// renders; the empty selection may be live upstream
	editLink := "https://terminplaner4.dfn.de/week41/vote/abc123"
	page := &browsertest.FakePage{
		Routes: map[string][]string{
			editLink: {editPollPage},
		},
		Clicks: map[string][]string{
			`button[name="save_edited_vote"]`: {`<html><body><p>Fehler</p></body></html>`},
		},
	}
	b := &browsertest.FakeBrowser{Pages: []*browsertest.FakePage{page}}

	err := Resubmit(context.Background(), b, ResubmitRequest{
		EditLink: editLink,
		Ids:      []string{"C1"},
	})
	require.ErrorIs(t, err, PartialSubmission)
	require.True(t, page.Closed)
}

func TestResubmitPartialWhenReloadFails(t *testing.T) {
	editLink := "https://terminplaner4.dfn.de/week41/vote/abc123"
	page := &browsertest.FakePage{
		Routes: map[string][]string{
			// the reload after the clear serves a view without the
			// update control, so the new selection cannot be committed
			editLink: {editPollPage, committedResultsPage},
		},
		Clicks: map[string][]string{
			`button[name="save_edited_vote"]`: {committedResultsPage},
		},
	}
	b := &browsertest.FakeBrowser{Pages: []*browsertest.FakePage{page}}

	err := Resubmit(context.Background(), b, ResubmitRequest{
		EditLink: editLink,
		Ids:      []string{"C1"},
	})
	require.ErrorIs(t, err, PartialSubmission)
	require.ErrorIs(t, err, SubmitControlMissing)
	require.True(t, page.Closed)
}

func TestResubmitFailureBeforeCommitIsNotPartial(t *testing.T) {
	editLink := "https://terminplaner4.dfn.de/week41/vote/abc123"
	page := &browsertest.FakePage{
		Routes: map[string][]string{
			// the edit page never renders its update control
			editLink: {committedResultsPage},
		},
	}
	b := &browsertest.FakeBrowser{Pages: []*browsertest.FakePage{page}}

	err := Resubmit(context.Background(), b, ResubmitRequest{
		EditLink: editLink,
		Ids:      []string{"C1"},
	})
	require.ErrorIs(t, err, SubmitControlMissing)
	require.NotErrorIs(t, err, PartialSubmission)
}
