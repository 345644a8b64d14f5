package apiclient

import (
	"context"
	"net/url"
)

// Catalog and account endpoints. Payload shapes belong to the backend; out
// may be any JSON target, including *json.RawMessage.

func (c *Client) Courses(ctx context.Context, query url.Values, out any) error {
	return c.GetJSON(ctx, withQuery("/courses", query), out)
}

func (c *Client) Categories(ctx context.Context, out any) error {
	return c.GetJSON(ctx, "/categories", out)
}

func (c *Client) Counts(ctx context.Context, out any) error {
	return c.GetJSON(ctx, "/counts", out)
}

func (c *Client) Course(ctx context.Context, slug string, out any) error {
	return c.GetJSON(ctx, "/courses/"+url.PathEscape(slug), out)
}

// Materi fetches a single lesson.
func (c *Client) Materi(ctx context.Context, slug string, out any) error {
	return c.GetJSON(ctx, "/materi/"+url.PathEscape(slug), out)
}

func (c *Client) MyCourses(ctx context.Context, out any) error {
	return c.GetJSON(ctx, "/my-courses", out)
}

func (c *Client) MyTransactions(ctx context.Context, out any) error {
	return c.GetJSON(ctx, "/my-transactions", out)
}

func (c *Client) MyCertificates(ctx context.Context, out any) error {
	return c.GetJSON(ctx, "/my-certificates", out)
}

func (c *Client) Transaction(ctx context.Context, id string, out any) error {
	return c.GetJSON(ctx, "/transactions/"+url.PathEscape(id), out)
}

// CreateTransaction starts checkout for a course.
func (c *Client) CreateTransaction(ctx context.Context, in, out any) error {
	return c.PostJSON(ctx, "/transactions", in, out)
}

// SubmitQuizAttempt sends answers; grading happens on the backend.
func (c *Client) SubmitQuizAttempt(ctx context.Context, in, out any) error {
	return c.PostJSON(ctx, "/quiz-attempts", in, out)
}

func (c *Client) CompleteContent(ctx context.Context, courseID, contentID string, out any) error {
	path := "/courses/" + url.PathEscape(courseID) + "/contents/" + url.PathEscape(contentID) + "/complete"
	return c.PostJSON(ctx, path, nil, out)
}

func (c *Client) Certificates(ctx context.Context, out any) error {
	return c.GetJSON(ctx, "/certificates", out)
}

// IssueCertificate asks the backend to issue a certificate for a completed course.
func (c *Client) IssueCertificate(ctx context.Context, in, out any) error {
	return c.PostJSON(ctx, "/certificates", in, out)
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
