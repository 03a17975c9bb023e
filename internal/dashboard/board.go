package dashboard

import (
	"context"

	"ops-dashboard-api/internal/cache"
)

const boardQuery = `
query($org: String!, $number: Int!) {
  organization(login: $org) {
    projectV2(number: $number) {
      title
      items(first: 100, orderBy: {field: POSITION, direction: ASC}) {
        nodes {
          id
          fieldValues(first: 20) {
            nodes {
              ... on ProjectV2ItemFieldTextValue { text field { ... on ProjectV2Field { name } } }
              ... on ProjectV2ItemFieldSingleSelectValue { name field { ... on ProjectV2SingleSelectField { name } } }
              ... on ProjectV2ItemFieldDateValue { date field { ... on ProjectV2Field { name } } }
            }
          }
          content {
            ... on Issue {
              number title state body url
              labels(first: 10) { nodes { name color } }
              assignees(first: 5) { nodes { login avatarUrl } }
              createdAt updatedAt closedAt
            }
            ... on PullRequest {
              number title state url
              createdAt updatedAt
            }
          }
        }
      }
    }
  }
}`

// Project field names, English and the Korean names used on the ops board.
var (
	statusFields   = map[string]bool{"Status": true}
	priorityFields = map[string]bool{"Priority": true, "우선순위": true}
	assigneeFields = map[string]bool{"Assignee": true, "담당": true}
)

// DefaultColumns are always present on the board, even when empty.
var DefaultColumns = []string{"Todo", "In Progress", "Done"}

type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Person struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl"`
}

// Card is one project item rendered on the board.
type Card struct {
	ID        string   `json:"id"`
	Number    int      `json:"number"`
	Title     string   `json:"title"`
	State     string   `json:"state"`
	URL       string   `json:"url"`
	Body      string   `json:"body"`
	Labels    []Label  `json:"labels"`
	Assignees []Person `json:"assignees"`
	Priority  string   `json:"priority"`
	Assignee  string   `json:"assignee"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

// Board groups project items by their Status field.
type Board struct {
	Title      string            `json:"title"`
	Columns    map[string][]Card `json:"columns"`
	TotalItems int               `json:"totalItems"`
}

type boardData struct {
	Organization *struct {
		ProjectV2 *struct {
			Title string `json:"title"`
			Items struct {
				Nodes []projectItem `json:"nodes"`
			} `json:"items"`
		} `json:"projectV2"`
	} `json:"organization"`
}

type projectItem struct {
	ID          string `json:"id"`
	FieldValues struct {
		Nodes []struct {
			Text  string `json:"text"`
			Name  string `json:"name"`
			Date  string `json:"date"`
			Field *struct {
				Name string `json:"name"`
			} `json:"field"`
		} `json:"nodes"`
	} `json:"fieldValues"`
	Content *struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		State  string `json:"state"`
		Body   string `json:"body"`
		URL    string `json:"url"`
		Labels *struct {
			Nodes []Label `json:"nodes"`
		} `json:"labels"`
		Assignees *struct {
			Nodes []Person `json:"nodes"`
		} `json:"assignees"`
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	} `json:"content"`
}

// Board returns the project board, cached.
func (s *Service) Board(ctx context.Context) (Board, cache.Outcome, error) {
	return cache.Fetch(ctx, s.cache, s.boardKey(), boardTTL, func(ctx context.Context) (Board, error) {
		var data boardData
		vars := map[string]any{"org": s.org, "number": s.projectNumber}
		if err := s.gh.GraphQL(ctx, boardQuery, vars, &data); err != nil {
			return Board{}, err
		}
		return buildBoard(data), nil
	})
}

func buildBoard(data boardData) Board {
	board := Board{Title: "Board", Columns: make(map[string][]Card, len(DefaultColumns))}
	for _, col := range DefaultColumns {
		board.Columns[col] = []Card{}
	}
	if data.Organization == nil || data.Organization.ProjectV2 == nil {
		return board
	}

	project := data.Organization.ProjectV2
	if project.Title != "" {
		board.Title = project.Title
	}
	board.TotalItems = len(project.Items.Nodes)

	for _, item := range project.Items.Nodes {
		if item.Content == nil {
			continue
		}

		status := "Todo"
		var priority, assignee string
		for _, fv := range item.FieldValues.Nodes {
			if fv.Field == nil {
				continue
			}
			switch name := fv.Field.Name; {
			case statusFields[name]:
				if fv.Name != "" {
					status = fv.Name
				}
			case priorityFields[name]:
				priority = fv.Name
			case assigneeFields[name]:
				assignee = fv.Name
			}
		}

		content := item.Content
		card := Card{
			ID:        item.ID,
			Number:    content.Number,
			Title:     content.Title,
			State:     content.State,
			URL:       content.URL,
			Body:      content.Body,
			Labels:    []Label{},
			Assignees: []Person{},
			Priority:  priority,
			Assignee:  assignee,
			CreatedAt: content.CreatedAt,
			UpdatedAt: content.UpdatedAt,
		}
		if content.Labels != nil {
			card.Labels = append(card.Labels, content.Labels.Nodes...)
		}
		if content.Assignees != nil {
			card.Assignees = append(card.Assignees, content.Assignees.Nodes...)
		}

		board.Columns[status] = append(board.Columns[status], card)
	}
	return board
}
