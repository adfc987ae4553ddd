package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"hagglebench/internal/domain"
	sqlitestore "hagglebench/internal/store/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/hagglebench.db", "sqlite database path")
	interval := flag.Duration("interval", 5*time.Second, "refresh interval")
	flag.Parse()

	store, err := sqlitestore.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()
	if err := store.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate store: %v\n", err)
		os.Exit(1)
	}

	app := tview.NewApplication()

	tournamentsTable := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false)
	tournamentsTable.SetTitle("Tournaments (Enter inspect, F5 refresh, F10 quit)").SetBorder(true)

	boardTable := tview.NewTable().
		SetBorders(false)
	boardTable.SetTitle("Leaderboard").SetBorder(true)

	pairsTable := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false)
	pairsTable.SetTitle("Pairs (Enter = transcripts)").SetBorder(true)

	transcriptView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	transcriptView.SetTitle("Transcripts").SetBorder(true)

	statusView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statusView.SetBorder(true).SetTitle("Status")
	statusView.SetText(fmt.Sprintf("Reading %s | shortcuts: F10 quit, F5 refresh, Tab switch panes", *dbPath))

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(boardTable, 0, 1, false).
		AddItem(pairsTable, 0, 1, false).
		AddItem(transcriptView, 0, 2, false)

	mainLayout := tview.NewFlex().
		AddItem(tournamentsTable, 0, 1, true).
		AddItem(right, 0, 2, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(mainLayout, 0, 12, true).
		AddItem(statusView, 3, 0, false)

	var lastTournaments []sqlitestore.TournamentSummary
	var lastPairs []sqlitestore.PairSummary
	var selectedTournamentID string

	setStatus := func(msg string) {
		statusView.SetText(msg)
	}

	refreshTournaments := func() {
		tournaments, err := store.ListTournaments(context.Background())
		if err != nil {
			app.QueueUpdateDraw(func() {
				tournamentsTable.Clear()
				tournamentsTable.SetCell(0, 0, tview.NewTableCell(fmt.Sprintf("load error: %v", err)))
			})
			return
		}
		lastTournaments = tournaments
		app.QueueUpdateDraw(func() {
			renderTournamentsTable(tournamentsTable, tournaments, selectedTournamentID)
		})
	}

	refreshDetails := func(tournamentID string) {
		if strings.TrimSpace(tournamentID) == "" {
			return
		}
		go func(id string) {
			board, boardErr := store.Leaderboard(context.Background(), id)
			pairs, pairsErr := store.ListPairs(context.Background(), id)
			app.QueueUpdateDraw(func() {
				if id != selectedTournamentID {
					return
				}
				if boardErr != nil {
					boardTable.Clear()
					boardTable.SetCell(0, 0, tview.NewTableCell(fmt.Sprintf("error: %v", boardErr)))
				} else {
					renderBoardTable(boardTable, board)
				}
				if pairsErr != nil {
					pairsTable.Clear()
					pairsTable.SetCell(0, 0, tview.NewTableCell(fmt.Sprintf("error: %v", pairsErr)))
				} else {
					lastPairs = pairs
					renderPairsTable(pairsTable, pairs)
				}
			})
		}(tournamentID)
	}

	showTranscripts := func(pair domain.PairKey) {
		go func(id string, p domain.PairKey) {
			transcripts, err := store.PairTranscripts(context.Background(), id, p)
			app.QueueUpdateDraw(func() {
				if id != selectedTournamentID {
					return
				}
				if err != nil {
					transcriptView.SetText(fmt.Sprintf("error: %v", err))
					return
				}
				transcriptView.SetText(renderTranscripts(p, transcripts))
			})
		}(selectedTournamentID, pair)
	}

	tournamentsTable.SetSelectedFunc(func(row, _ int) {
		if row <= 0 || row > len(lastTournaments) {
			return
		}
		selectedTournamentID = lastTournaments[row-1].ID
		transcriptView.SetText("")
		refreshDetails(selectedTournamentID)
		setStatus("Inspecting " + shortID(selectedTournamentID))
	})

	pairsTable.SetSelectedFunc(func(row, _ int) {
		if row <= 0 || row > len(lastPairs) {
			return
		}
		showTranscripts(lastPairs[row-1].Pair)
	})

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF10:
			app.Stop()
			return nil
		case tcell.KeyF5:
			refreshTournaments()
			refreshDetails(selectedTournamentID)
			setStatus("Manual refresh complete")
			return nil
		case tcell.KeyTAB:
			if app.GetFocus() == tournamentsTable {
				app.SetFocus(pairsTable)
			} else {
				app.SetFocus(tournamentsTable)
			}
			return nil
		}
		return event
	})

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()

		refreshTournaments()
		for range ticker.C {
			refreshTournaments()
			refreshDetails(selectedTournamentID)
		}
	}()

	if err := app.SetRoot(root, true).EnableMouse(true).SetFocus(tournamentsTable).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "leaderboard failed: %v\n", err)
		os.Exit(1)
	}
}

func renderTournamentsTable(table *tview.Table, tournaments []sqlitestore.TournamentSummary, selectedID string) {
	table.Clear()
	headers := []string{"Run", "Finished", "Agents", "Scenarios", "Workers", "Worth"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, t := range tournaments {
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(shortID(t.ID)))
		table.SetCell(row, 1, tview.NewTableCell(t.FinishedAt.Format("01-02 15:04:05")))
		table.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%d", t.AgentCount)))
		table.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d", t.ScenarioCount)))
		table.SetCell(row, 4, tview.NewTableCell(fmt.Sprintf("%d", t.Workers)))
		table.SetCell(row, 5, tview.NewTableCell(fmt.Sprintf("%d", t.TotalTargetWorth)))
		if t.ID == selectedID {
			table.Select(row, 0)
		}
	}
}

func renderBoardTable(table *tview.Table, board []sqlitestore.AgentProfit) {
	table.Clear()
	headers := []string{"Rank", "Agent", "Profit"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, item := range board {
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf("%d", row)))
		table.SetCell(row, 1, tview.NewTableCell(item.AgentID))
		table.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%d", item.Profit)))
	}
}

func renderPairsTable(table *tview.Table, pairs []sqlitestore.PairSummary) {
	table.Clear()
	headers := []string{"Pair", "Samples"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, item := range pairs {
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(item.Pair.String()))
		table.SetCell(row, 1, tview.NewTableCell(fmt.Sprintf("%d", item.TranscriptCount)))
	}
}

func renderTranscripts(pair domain.PairKey, transcripts []domain.Negotiation) string {
	if len(transcripts) == 0 {
		return "No sampled transcripts for " + pair.String()
	}
	var b strings.Builder
	for i, tr := range transcripts {
		b.WriteString(fmt.Sprintf(
			"#%d scenario=%d worth=%d outcome=%s  %s=%d %s=%d\n",
			i+1, tr.Scenario.ID, tr.Scenario.TargetWorth, tr.Outcome,
			tr.Seat0Agent, tr.ProfitSeat0, tr.Seat1Agent, tr.ProfitSeat1,
		))
		for _, turn := range tr.Turns {
			b.WriteString(fmt.Sprintf("  r%-3d s0=%s s1=%s\n", turn.Round, formatOffer(turn.OfferSeat0), formatOffer(turn.OfferSeat1)))
		}
	}
	return b.String()
}

func formatOffer(offer domain.Allocation) string {
	if offer == nil {
		return "-"
	}
	parts := make([]string, len(offer))
	for i, q := range offer {
		parts[i] = fmt.Sprintf("%d", q)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func shortID(v string) string {
	if len(v) <= 8 {
		return v
	}
	return v[:8]
}
