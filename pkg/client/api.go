package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"hotelbook/internal/integrity"
	"hotelbook/pkg/model"
	"hotelbook/pkg/query"
)

const apiPrefix = "/api/v1"

// APIError is a non-2xx answer from the booking API.
type APIError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

type Item[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type List[T any] struct {
	Data       []T              `json:"data"`
	Count      int              `json:"count"`
	Total      int64            `json:"total"`
	Pagination query.Pagination `json:"pagination"`
	Message    string           `json:"message"`
}

// APIClient calls the booking API as the holder of one bearer token.
type APIClient struct {
	http *HttpClient
}

func NewAPIClient(baseURL, token string) *APIClient {
	c := NewHttpClient(baseURL)
	if token != "" {
		c.Headers["Authorization"] = "Bearer " + token
	}
	return &APIClient{http: c}
}

func (c *APIClient) WaitForHealthy(ctx context.Context) error {
	return c.http.WaitForHealthy(ctx, 30*time.Second)
}

func (c *APIClient) ListHotels(ctx context.Context, params url.Values) (*List[model.Hotel], error) {
	return decode[List[model.Hotel]](c.http.GET(ctx, withQuery(apiPrefix+"/hotels", params)))
}

func (c *APIClient) GetHotel(ctx context.Context, id string) (*model.Hotel, error) {
	return data(decode[Item[model.Hotel]](c.http.GET(ctx, apiPrefix+"/hotels/"+url.PathEscape(id))))
}

func (c *APIClient) CreateHotel(ctx context.Context, req *model.CreateHotelRequest) (*model.Hotel, error) {
	return data(decode[Item[model.Hotel]](c.http.POST(ctx, apiPrefix+"/hotels", req)))
}

func (c *APIClient) UpdateHotel(ctx context.Context, id string, patch *model.HotelPatch) (*model.Hotel, error) {
	return data(decode[Item[model.Hotel]](c.http.PATCH(ctx, apiPrefix+"/hotels/"+url.PathEscape(id), patch)))
}

func (c *APIClient) DeleteHotel(ctx context.Context, id string) (*model.Hotel, error) {
	return data(decode[Item[model.Hotel]](c.http.DELETE(ctx, apiPrefix+"/hotels/"+url.PathEscape(id))))
}

func (c *APIClient) ListBookings(ctx context.Context, params url.Values) (*List[model.BookingView], error) {
	return decode[List[model.BookingView]](c.http.GET(ctx, withQuery(apiPrefix+"/bookings", params)))
}

func (c *APIClient) ListHotelBookings(ctx context.Context, hotelID string, params url.Values) (*List[model.BookingView], error) {
	path := apiPrefix + "/hotels/" + url.PathEscape(hotelID) + "/bookings"
	return decode[List[model.BookingView]](c.http.GET(ctx, withQuery(path, params)))
}

func (c *APIClient) GetBooking(ctx context.Context, id string) (*model.BookingView, error) {
	return data(decode[Item[model.BookingView]](c.http.GET(ctx, apiPrefix+"/bookings/"+url.PathEscape(id))))
}

// CreateBooking sends idempotencyKey when it is not empty, so a retried
// call returns the first booking instead of a second one.
func (c *APIClient) CreateBooking(ctx context.Context, req *model.CreateBookingRequest, idempotencyKey string) (*model.BookingView, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	return data(decode[Item[model.BookingView]](c.http.POSTWithHeaders(ctx, apiPrefix+"/bookings", req, headers)))
}

func (c *APIClient) UpdateBooking(ctx context.Context, id string, patch *model.BookingPatch) (*model.BookingView, error) {
	return data(decode[Item[model.BookingView]](c.http.PATCH(ctx, apiPrefix+"/bookings/"+url.PathEscape(id), patch)))
}

func (c *APIClient) DeleteBooking(ctx context.Context, id string) (*model.BookingView, error) {
	return data(decode[Item[model.BookingView]](c.http.DELETE(ctx, apiPrefix+"/bookings/"+url.PathEscape(id))))
}

func (c *APIClient) ListUsers(ctx context.Context, params url.Values) (*List[model.User], error) {
	return decode[List[model.User]](c.http.GET(ctx, withQuery(apiPrefix+"/users", params)))
}

func (c *APIClient) GetUser(ctx context.Context, id string) (*model.User, error) {
	return data(decode[Item[model.User]](c.http.GET(ctx, apiPrefix+"/users/"+url.PathEscape(id))))
}

// CreateUser registers a profile. Non-admin tokens may only register their
// own subject.
func (c *APIClient) CreateUser(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	return data(decode[Item[model.User]](c.http.POST(ctx, apiPrefix+"/users", req)))
}

func (c *APIClient) UpdateUser(ctx context.Context, id string, patch *model.UserPatch) (*model.User, error) {
	return data(decode[Item[model.User]](c.http.PATCH(ctx, apiPrefix+"/users/"+url.PathEscape(id), patch)))
}

func (c *APIClient) DeleteUser(ctx context.Context, id string) (*model.User, error) {
	return data(decode[Item[model.User]](c.http.DELETE(ctx, apiPrefix+"/users/"+url.PathEscape(id))))
}

func (c *APIClient) Reconcile(ctx context.Context) (*integrity.Report, error) {
	return data(decode[Item[integrity.Report]](c.http.POSTRaw(ctx, apiPrefix+"/admin/reconcile", nil)))
}

func decode[T any](resp *Response, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := resp.DecodeJSON(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = string(resp.Body)
		}
		return nil, apiErr
	}
	var out T
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

func data[T any](item *Item[T], err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	return &item.Data, nil
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
